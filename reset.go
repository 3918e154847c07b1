package medgemma

// ResetInferenceState reloads the vision encoder and projection sessions if
// a prior inference released them to reclaim memory. Callers that expect
// to run another image-bearing inference after one that already ran
// should call this first; GenerateStreaming does not call it, and an image
// supplied while the vision sessions are released only produces a warning
// and a text-only generation.
func (e *Engine) ResetInferenceState() error {
	if e.visionSess != nil && e.projSess != nil {
		return nil
	}

	return loadVisionSessions(e)
}
