package tierkv

// Close stops background work and releases resources. Operations after Close
// return ErrClosed. Data in the cold store is left behind; only in-process
// state is torn down.
func (e *Engine) Close() error {
	if e == nil {
		return nil
	}
	if e.closed.Swap(true) {
		return nil
	}

	var firstErr error
	e.reaper.Stop()
	if e.blockCache != nil {
		if err := e.blockCache.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
