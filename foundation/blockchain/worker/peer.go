package worker

// peerOperations handles finding new peers.
func (w *Worker) peerOperations() {
	w.evHandler("worker: peerOperations: G started")
	defer w.evHandler("worker: peerOperations: G completed")

	for {
		select {
		case <-w.ticker.C:
			if !w.isShutdown() {
				w.runPeersOperation()
			}
		case <-w.shut:
			w.evHandler("worker: peerOperations: received shut signal")
			return
		}
	}
}

// runPeersOperation asks every known peer for the peers it knows. A peer
// that can't be reached is removed from the list.
func (w *Worker) runPeersOperation() {
	w.evHandler("worker: runPeersOperation: started")
	defer w.evHandler("worker: runPeersOperation: completed")

	for _, pr := range w.state.RetrieveKnownPeers() {
		hosts, err := w.state.NetRequestPeers(w.ctx, pr.Host)
		if err != nil {
			w.evHandler("worker: runPeersOperation: NetRequestPeers: %s: ERROR: %s", pr.Host, err)
			w.state.RemoveKnownPeer(pr)
			continue
		}

		for _, host := range hosts {
			if _, err := w.state.AddPeer(w.ctx, host); err != nil {
				w.evHandler("worker: runPeersOperation: AddPeer: %s: ERROR: %s", host, err)
			}
		}
	}
}
