package medgemma

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/kintamed/medgemma-runtime/internal/ortffi"
	"github.com/kintamed/medgemma-runtime/internal/sampler"
	"github.com/kintamed/medgemma-runtime/logsink"
)

// errPrefillFailed is the one named, expected failure mode runInference
// treats as an EventError ("[ERR] Prefill failed" at the FFI boundary)
// rather than an EventException — every other error out of the decode
// path is an unexpected native/runtime failure.
var errPrefillFailed = errors.New("Prefill failed")

// kvCache holds the decoder's 34 pairs of past key/value tensors, replaced
// wholesale after every prefill chunk and decode step — the ONNX graph's
// KV cache is an explicit input/output pair per layer, not a runtime-owned
// cache, so ownership of the previous step's tensors transfers to this
// struct's caller to release once the next step's tensors are in hand.
type kvCache struct {
	keys   []*ortffi.Tensor
	values []*ortffi.Tensor
}

// release frees every tensor this kvCache owns. Must be called on the
// superseded cache once its replacement is in hand — the ONNX graph hands
// back a fresh present.N.key/value pair every step, so the previous step's
// past.N.key/value pair is never needed again and would otherwise leak.
func (kv *kvCache) release() {
	if kv == nil {
		return
	}
	for i := range kv.keys {
		kv.keys[i].Release()
		kv.values[i].Release()
	}
}

func emptyKVCache(e *Engine) (*kvCache, error) {
	kv := &kvCache{keys: make([]*ortffi.Tensor, numLayers), values: make([]*ortffi.Tensor, numLayers)}

	shape := []int64{1, numHeads, 0, headDim}

	for i := 0; i < numLayers; i++ {
		k, err := e.decodeSess.NewInputTensor(nil, shape)
		if err != nil {
			return nil, err
		}
		v, err := e.decodeSess.NewInputTensor(nil, shape)
		if err != nil {
			return nil, err
		}
		kv.keys[i], kv.values[i] = k, v
	}

	return kv, nil
}

// runPrefill feeds embeds/attnMask through the decoder in prefillChunk-sized
// chunks, discarding every chunk's logits except the final chunk's last
// position, and returns the first sampled token id.
func runPrefill(e *Engine, embeds []float32, attnMask []int64, state *decodeState, sp sampler.Params, mask []bool) (int32, error) {
	totalPrefill := int64(len(attnMask))

	kv, err := emptyKVCache(e)
	if err != nil {
		return -1, err
	}
	state.kv = kv

	var nextID int32 = -1

	for chunkStart := int64(0); chunkStart < totalPrefill; chunkStart += prefillChunk {
		chunkLen := min64(prefillChunk, totalPrefill-chunkStart)
		isLastChunk := chunkStart+chunkLen >= totalPrefill

		offset := chunkStart * embedDim
		count := chunkLen * embedDim

		embedTensor, err := e.decodeSess.NewInputTensor(embeds[offset:offset+count], []int64{1, chunkLen, embedDim})
		if err != nil {
			return -1, err
		}

		chunkMask := make([]int64, state.kvLen+chunkLen)
		for i := range chunkMask {
			chunkMask[i] = 1
		}
		maskTensor, err := e.decodeSess.NewInputTensorInt64(chunkMask, []int64{1, int64(len(chunkMask))})
		if err != nil {
			return -1, err
		}

		inputs := decoderInputs(embedTensor, maskTensor, state.kv)

		res, err := e.decodeSess.Run(inputs)
		if err != nil {
			return -1, err
		}

		if isLastChunk {
			logits, err := res[0].Float32Data(int(chunkLen) * vocabSize)
			if err != nil {
				res[0].Release()
				return -1, err
			}

			lastPosition := logits[len(logits)-vocabSize:]
			nextID = sampler.Sample(lastPosition, sampler.Params{
				TopP:              sp.TopP,
				Temperature:       sp.Temperature,
				RepetitionPenalty: sp.RepetitionPenalty,
				ForeignMask:       mask,
				Generated:         state.generated,
			})
		}

		res[0].Release()

		state.kvLen += chunkLen
		state.kv.release()
		state.kv = kvFromOutputs(res)

		logsink.Debug("prefill chunk [%d..%d) kv_len=%d", chunkStart, chunkStart+chunkLen, state.kvLen)
	}

	if nextID < 0 {
		return -1, errPrefillFailed
	}

	return nextID, nil
}

// decodeStep embeds id, runs one decoder step against the current KV
// cache, and returns the resulting logits for the single new position.
func decodeStep(e *Engine, id int32, state *decodeState) ([]float32, error) {
	row, err := embedRow(e, id)
	if err != nil {
		return nil, err
	}

	embedTensor, err := e.decodeSess.NewInputTensor(row, []int64{1, 1, embedDim})
	if err != nil {
		return nil, err
	}

	maskLen := state.kvLen + 1
	decMask := make([]int64, maskLen)
	for i := range decMask {
		decMask[i] = 1
	}
	maskTensor, err := e.decodeSess.NewInputTensorInt64(decMask, []int64{1, maskLen})
	if err != nil {
		return nil, err
	}

	inputs := decoderInputs(embedTensor, maskTensor, state.kv)

	res, err := e.decodeSess.Run(inputs)
	if err != nil {
		return nil, err
	}

	logits, err := res[0].Float32Data(vocabSize)
	res[0].Release()
	if err != nil {
		return nil, err
	}

	state.kvLen++
	state.kv.release()
	state.kv = kvFromOutputs(res)

	return logits, nil
}

func decoderInputs(embeds, mask *ortffi.Tensor, kv *kvCache) []*ortffi.Tensor {
	inputs := make([]*ortffi.Tensor, 2+2*numLayers)
	inputs[0] = embeds
	inputs[1] = mask

	for i := 0; i < numLayers; i++ {
		inputs[2+2*i] = kv.keys[i]
		inputs[2+2*i+1] = kv.values[i]
	}

	return inputs
}

// kvFromOutputs reinterprets a decoder Run's present.N.key/value outputs
// (everything after the logits tensor) as the next step's past key/value
// cache, taking ownership of the runtime-allocated tensors.
func kvFromOutputs(outputs []*ortffi.Tensor) *kvCache {
	kv := &kvCache{keys: make([]*ortffi.Tensor, numLayers), values: make([]*ortffi.Tensor, numLayers)}

	for i := 0; i < numLayers; i++ {
		kv.keys[i] = outputs[1+2*i]
		kv.values[i] = outputs[1+2*i+1]
	}

	return kv
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// availableRAMKB reads MemAvailable from /proc/meminfo, matching the
// reference low-memory guard. It reports ok=false on platforms where this
// file doesn't exist (anything but Linux/Android) so callers skip the
// guard rather than treating an unreadable file as "out of memory".
func availableRAMKB() (int64, bool) {
	data, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		return 0, false
	}

	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "MemAvailable:") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0, false
		}

		kb, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return 0, false
		}

		return kb, true
	}

	return 0, false
}
