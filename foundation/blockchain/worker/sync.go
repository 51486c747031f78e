package worker

// Sync introduces this node to the bootstrap node and the configured
// peers and learns the peers they know.
func (w *Worker) Sync() {
	w.evHandler("worker: sync: started")
	defer w.evHandler("worker: sync: completed")

	if w.cfg.Bootstrap != "" {
		if err := w.state.DiscoverPeers(w.ctx, w.cfg.Bootstrap); err != nil {
			w.evHandler("worker: sync: DiscoverPeers: %s: ERROR: %s", w.cfg.Bootstrap, err)
		}
	}

	for _, pr := range w.state.RetrieveKnownPeers() {
		if pr.Match(w.cfg.Bootstrap) {
			continue
		}

		if err := w.state.DiscoverPeers(w.ctx, pr.Host); err != nil {
			w.evHandler("worker: sync: DiscoverPeers: %s: ERROR: %s", pr.Host, err)
		}
	}
}
