package session

const eventBufferSize = 16

// Subscription provides event channels for a subscriber. Sends are
// non-blocking; a slow consumer loses events rather than stalling
// the sampling loop.
type Subscription struct {
	StatusChanged <-chan StatusChange
	Checkpointed  <-chan Checkpoint
	Ended         <-chan End

	// Internal write channels
	statusCh     chan StatusChange
	checkpointCh chan Checkpoint
	endCh        chan End
}

func newSubscription() *Subscription {
	s := &Subscription{
		statusCh:     make(chan StatusChange, eventBufferSize),
		checkpointCh: make(chan Checkpoint, eventBufferSize),
		endCh:        make(chan End, eventBufferSize),
	}
	s.StatusChanged = s.statusCh
	s.Checkpointed = s.checkpointCh
	s.Ended = s.endCh
	return s
}

func (s *Subscription) sendStatus(e StatusChange) {
	select {
	case s.statusCh <- e:
	default:
		// Drop if buffer full
	}
}

func (s *Subscription) sendCheckpoint(e Checkpoint) {
	select {
	case s.checkpointCh <- e:
	default:
	}
}

func (s *Subscription) sendEnd(e End) {
	select {
	case s.endCh <- e:
	default:
	}
}
