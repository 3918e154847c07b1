package medgemma

import (
	"context"
	"errors"
	"fmt"

	"github.com/kintamed/medgemma-runtime/internal/imagepreproc"
	"github.com/kintamed/medgemma-runtime/internal/langfilter"
	"github.com/kintamed/medgemma-runtime/internal/ortffi"
	"github.com/kintamed/medgemma-runtime/internal/sampler"
	"github.com/kintamed/medgemma-runtime/internal/stopmatch"
	"github.com/kintamed/medgemma-runtime/logsink"
)

// prefillChunk is the number of prefill positions processed per decoder
// call. Sending the whole prompt in one call would produce a
// {1, seqLen, vocabSize} logits tensor — at 256000 float32 vocab entries
// (about 1 MB per position) and a couple hundred prompt tokens, hundreds of
// megabytes that are immediately
// discarded except for the final chunk's last position. Chunking keeps the
// largest single live allocation bounded regardless of prompt length.
const prefillChunk = 16

// maxGeneratedWindow bounds how many recent token ids the repetition
// penalty considers — enough to catch phrase-level loops without keeping
// the full generation history alive.
const maxGeneratedWindow = 128

// runInference executes the staged pipeline: optional vision encode+fuse,
// chunked prefill, autoregressive decode. It always closes the returned
// channel, even on error — the last value before close is either an
// EventError, an EventException, or an EventDone.
func runInference(ctx context.Context, e *Engine, p GenerateParams) <-chan Event {
	out := make(chan Event)

	go func() {
		defer close(out)

		gp, sp := adjustParams(p, e.cfg.Sampler)

		projected, err := stageVision(e, gp.Image, out)
		if err != nil {
			out <- classifyFailure(err)
			return
		}

		tokens, err := stageTokenize(e, gp.Prompt)
		if err != nil {
			out <- classifyFailure(err)
			return
		}

		embeds, attnMask, injections := stageFuse(e, tokens, projected)
		if injections == 0 && len(projected) > 0 {
			out <- warningEvent("[WARN] Image not grounded — <image> token missing from prompt. Output may be hallucinated.")
		}

		mask := langfilter.Mask(e.tokenizer, vocabSize)

		if err := stageGenerate(ctx, e, embeds, attnMask, gp, sp, mask, out); err != nil {
			out <- classifyFailure(err)
			return
		}

		out <- doneEvent()
	}()

	return out
}

// classifyFailure draws the same line the reference implementation's
// top-level try/catch draws: errPrefillFailed and context cancellation are
// named, expected conditions (EventError); everything else reaching this
// point is an unexpected failure from the native runtime or codec layer
// (EventException).
func classifyFailure(err error) Event {
	if errors.Is(err, errPrefillFailed) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errorEvent(err)
	}
	return exceptionEvent(err)
}

// stageVision runs the vision encoder + projection if image is non-empty,
// returning the 256-patch projected embeddings. The vision sessions are
// released immediately after use — their weights are never needed again
// once this inference's patches are in hand — and ResetInferenceState must
// be called before another image-bearing call.
func stageVision(e *Engine, image []byte, out chan<- Event) ([]float32, error) {
	if len(image) == 0 {
		return nil, nil
	}

	if e.visionSess == nil || e.projSess == nil {
		out <- warningEvent("[WARN] vision sessions unloaded; call ResetInferenceState before another image-bearing request")
		return nil, nil
	}

	tensor, err := imagepreproc.Process(image)
	if err != nil {
		out <- imageErrorEvent("[IMG_ERR] " + err.Error())
		return nil, nil
	}

	if avail, ok := availableRAMKB(); ok && avail < e.cfg.RAM.PreflightKB {
		out <- imageErrorEvent(fmt.Sprintf(
			"[IMG_ERR] Insufficient RAM for vision encoder (%d MB free, need ~%d MB). Try closing other apps.",
			avail/1024, e.cfg.RAM.PreflightKB/1024))
		return nil, nil
	}

	visionInput, err := e.visionSess.NewInputTensor(tensor.Data, tensor.Shape[:])
	if err != nil {
		return nil, err
	}

	visionOut, err := e.visionSess.Run([]*ortffi.Tensor{visionInput})
	if err != nil {
		return nil, err
	}
	imageFeatures := visionOut[0]

	projOut, err := e.projSess.Run([]*ortffi.Tensor{imageFeatures})
	imageFeatures.Release()
	if err != nil {
		return nil, err
	}

	projected, err := projOut[0].Float32Data(numImagePatches * embedDim)
	projOut[0].Release()
	if err != nil {
		return nil, err
	}

	// The vision encoder and projection weights are never touched again
	// in this inference; release them now so their RAM is reclaimed
	// before the decode loop's working set grows.
	e.visionSess.Release()
	e.projSess.Release()
	e.visionSess = nil
	e.projSess = nil

	logsink.Info("vision encode + projection done (%d floats)", len(projected))

	return projected, nil
}

func stageTokenize(e *Engine, prompt string) ([]int32, error) {
	encoded, err := e.tokenizer.Encode(prompt)
	if err != nil {
		return nil, err
	}

	tokens := make([]int32, 0, len(encoded)+1)
	tokens = append(tokens, bosTokenID)
	tokens = append(tokens, encoded...)

	return tokens, nil
}

// stageFuse builds the fused embedding sequence and attention mask,
// splicing projected (num_patches rows) in at every occurrence of the
// image placeholder id and looking up a single embedding row from the
// embeddings session otherwise.
func stageFuse(e *Engine, tokens []int32, projected []float32) (embeds []float32, attnMask []int64, injections int) {
	embeds = make([]float32, 0, (len(tokens)+numImagePatches)*embedDim)
	attnMask = make([]int64, 0, len(tokens)+numImagePatches)

	for _, id := range tokens {
		if id == e.imageTokenID && len(projected) > 0 {
			injections++
			embeds = append(embeds, projected...)
			for i := 0; i < numImagePatches; i++ {
				attnMask = append(attnMask, 1)
			}
			continue
		}

		row, err := embedRow(e, id)
		if err != nil {
			logsink.Error("embedding lookup failed for token %d: %v", id, err)
			continue
		}

		embeds = append(embeds, row...)
		attnMask = append(attnMask, 1)
	}

	return embeds, attnMask, injections
}

func embedRow(e *Engine, id int32) ([]float32, error) {
	idTensor, err := e.embedSess.NewInputTensorInt64([]int64{int64(id)}, []int64{1, 1})
	if err != nil {
		return nil, err
	}

	res, err := e.embedSess.Run([]*ortffi.Tensor{idTensor})
	if err != nil {
		return nil, err
	}
	defer res[0].Release()

	return res[0].Float32Data(embedDim)
}

// decodeState holds the decoder's running KV cache position and the
// sliding window of recently generated ids the repetition penalty reads.
type decodeState struct {
	kvLen     int64
	kv        *kvCache
	generated []int32
}

func (d *decodeState) remember(id int32) {
	d.generated = append(d.generated, id)
	if len(d.generated) > maxGeneratedWindow {
		d.generated = d.generated[1:]
	}
}

// stageGenerate runs chunked prefill over embeds/attnMask, then the
// autoregressive decode loop, emitting one EventToken per generated piece
// of text until EOS, a stop string, max tokens, or a low-RAM guard fires.
func stageGenerate(ctx context.Context, e *Engine, embeds []float32, attnMask []int64, gp GenerateParams, sp sampler.Params, mask []bool, out chan<- Event) error {
	state := &decodeState{}
	matcher := stopmatch.New(gp.StopStrings)

	nextID, err := runPrefill(e, embeds, attnMask, state, sp, mask)
	if err != nil {
		return err
	}

	if !eosTokenIDs[nextID] {
		state.remember(nextID)
		text, _ := e.tokenizer.DecodeToken(nextID)
		if text != "" {
			out <- tokenEvent(text)
			if triggered, _ := matcher.Feed(text); triggered {
				return nil
			}
		}
	} else {
		return nil
	}

	for step := 0; step < gp.MaxTokens-1; step++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		logits, err := decodeStep(e, nextID, state)
		if err != nil {
			return err
		}

		nextID = sampler.Sample(logits, sampler.Params{
			TopP:              sp.TopP,
			Temperature:       sp.Temperature,
			RepetitionPenalty: sp.RepetitionPenalty,
			ForeignMask:       mask,
			Generated:         state.generated,
		})

		if eosTokenIDs[nextID] {
			logsink.Info("eos at decode step %d", step+1)
			return nil
		}

		state.remember(nextID)

		text, _ := e.tokenizer.DecodeToken(nextID)
		if text != "" {
			out <- tokenEvent(text)

			if triggered, matched := matcher.Feed(text); triggered {
				logsink.Info("stop string triggered at decode step %d: %q", step+1, matched)
				return nil
			}
		}

		if (step+1)%e.cfg.RAM.CheckEvery == 0 {
			avail, ok := availableRAMKB()
			if ok && avail < e.cfg.RAM.LowKB {
				out <- warningEvent("[WARN] Low RAM, stopping")
				return nil
			}
		}
	}

	return nil
}
