package vecrecall

// Close releases the memory reserved for the tracker. The tracker itself
// stays usable; only the Runner is retired. Close is idempotent.
func (r *Runner) Close() error {
	if r == nil || r.closed {
		return nil
	}
	r.ctrl.ReleaseMemory(r.reserved)
	r.closed = true
	r.logger.Debug("runner closed", "checkpoints", len(r.checkpoints))
	return nil
}
