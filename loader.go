package medgemma

import (
	"fmt"
	"path/filepath"

	"github.com/kintamed/medgemma-runtime/internal/ortffi"
	"github.com/kintamed/medgemma-runtime/logsink"
)

// Fixed model-directory file names and architecture constants this runtime
// targets. These are not configurable: the four sessions' input/output
// tensor names and shapes are specific to this model family.
const (
	visionEncoderFile    = "vision_encoder.ort"
	visionProjectionFile = "vision_projection.ort"
	embeddingsFile       = "embeddings.ort"
	decoderFile          = "model.onnx"

	embedDim        = 2560
	numLayers       = 34
	numHeads        = 4
	headDim         = 256
	vocabSize       = 256000
	numImagePatches = 256

	bosTokenID           = 2
	fallbackImageTokenID = 255999
)

// eosTokenIDs are the token ids that end generation.
var eosTokenIDs = map[int32]bool{1: true, 106: true}

func loadEngine(e *Engine) error {
	logsink.Info("loading medgemma from: %s", e.modelDir)

	env, err := ortffi.NewEnv("MedGemma")
	if err != nil {
		return fmt.Errorf("medgemma: %w", err)
	}
	e.env = env

	embedSess, err := ortffi.NewSession(env, filepath.Join(e.modelDir, embeddingsFile), ortffi.LLMProfile,
		[]string{"input_ids"}, []string{"embeddings"})
	if err != nil {
		e.env.Release()
		return fmt.Errorf("medgemma: load embeddings session: %w", err)
	}
	e.embedSess = embedSess

	decodeSess, err := ortffi.NewSession(env, filepath.Join(e.modelDir, decoderFile), ortffi.LLMProfile,
		decoderInputNames(), decoderOutputNames())
	if err != nil {
		embedSess.Release()
		e.env.Release()
		return fmt.Errorf("medgemma: load decoder session: %w", err)
	}
	e.decodeSess = decodeSess

	if err := loadVisionSessions(e); err != nil {
		return err
	}

	model, err := ortffi.LoadModel(e.modelDir)
	if err != nil {
		return fmt.Errorf("medgemma: load tokenizer: %w", err)
	}
	e.model = model
	e.tokenizer = model.Tokenizer

	e.imageTokenID = discoverImageTokenID(e.tokenizer, e.cfg.ImagePlaceholder)

	e.info = ModelInfo{
		ModelDir:        e.modelDir,
		EmbedDim:        embedDim,
		NumLayers:       numLayers,
		NumHeads:        numHeads,
		HeadDim:         headDim,
		VocabSize:       vocabSize,
		ImageTokenID:    e.imageTokenID,
		NumImagePatches: numImagePatches,
	}

	logsink.Info("medgemma engine ready, image_token_id=%d", e.imageTokenID)

	return nil
}

// loadVisionSessions loads the vision encoder + projection sessions. It is
// also called by ResetInferenceState to reload them after they were
// released mid-inference to reclaim memory.
func loadVisionSessions(e *Engine) error {
	visionSess, err := ortffi.NewSession(e.env, filepath.Join(e.modelDir, visionEncoderFile), ortffi.VisionProfile,
		[]string{"pixel_values"}, []string{"image_features"})
	if err != nil {
		return fmt.Errorf("medgemma: load vision encoder session: %w", err)
	}
	e.visionSess = visionSess

	projSess, err := ortffi.NewSession(e.env, filepath.Join(e.modelDir, visionProjectionFile), ortffi.VisionProfile,
		[]string{"image_features"}, []string{"visual_tokens"})
	if err != nil {
		visionSess.Release()
		e.visionSess = nil
		return fmt.Errorf("medgemma: load vision projection session: %w", err)
	}
	e.projSess = projSess

	return nil
}

// decoderInputNames and decoderOutputNames build the fixed inputs_embeds +
// attention_mask + 34 layers of past/present KV tensor names the decoder
// graph was exported with.
func decoderInputNames() []string {
	names := []string{"inputs_embeds", "attention_mask"}
	for i := 0; i < numLayers; i++ {
		names = append(names, fmt.Sprintf("past_key_values.%d.key", i), fmt.Sprintf("past_key_values.%d.value", i))
	}
	return names
}

func decoderOutputNames() []string {
	names := []string{"logits"}
	for i := 0; i < numLayers; i++ {
		names = append(names, fmt.Sprintf("present.%d.key", i), fmt.Sprintf("present.%d.value", i))
	}
	return names
}

// discoverImageTokenID tokenizes placeholder and takes the first id that
// isn't BOS, falling back to the fixed reference id if that doesn't
// produce a usable result.
func discoverImageTokenID(tok *ortffi.Tokenizer, placeholder string) int32 {
	ids, err := tok.Encode(placeholder)
	if err != nil {
		logsink.Warn("failed to tokenize image placeholder %q: %v", placeholder, err)
		return fallbackImageTokenID
	}

	for _, id := range ids {
		if id != bosTokenID {
			return id
		}
	}

	logsink.Warn("image placeholder %q produced no non-BOS token, using fallback id", placeholder)
	return fallbackImageTokenID
}
