package wasi

import "time"

// Concurrently poll for the occurrence of a set of events.
//
// Clock subscriptions are honored by sleeping for the longest requested
// timeout and reporting every clock ready. File descriptor subscriptions
// are validated against the descriptor table and then reported
// immediately ready with zero bytes available: the host does not probe
// stream readiness, so a guest that polls stdin before reading observes
// readiness and then blocks in fd_read as it would on a plain pipe.
func (h *Host) pollOneoff(mem *view, in, out, nsubscriptions, nevents uint32) Errno {
	if nsubscriptions == 0 {
		return ErrnoInval
	}

	subs := make([]subscription, nsubscriptions)
	for i := range subs {
		sub, ok := loadSubscription(mem, in+uint32(i)*sizeofSubscription)
		if !ok {
			return ErrnoFault
		}
		subs[i] = sub
	}

	var wait time.Duration
	events := make([]event, 0, nsubscriptions)
	for _, sub := range subs {
		switch sub.tag {
		case eventtypeClock:
			if d := h.clockWait(&sub); d > wait {
				wait = d
			}
			events = append(events, event{
				userdata: sub.userdata,
				errno:    ErrnoSuccess,
				typ:      eventtypeClock,
			})

		case eventtypeFdRead, eventtypeFdWrite:
			required := RightsFdRead
			if sub.tag == eventtypeFdWrite {
				required = RightsFdWrite
			}
			_, errno := h.files.get(sub.fd, required|RightsPollFdReadwrite)
			events = append(events, event{
				userdata: sub.userdata,
				errno:    errno,
				typ:      sub.tag,
			})

		default:
			return ErrnoInval
		}
	}

	if wait > 0 {
		time.Sleep(wait)
	}

	for i := range events {
		if !events[i].store(mem, out+uint32(i)*sizeofEvent) {
			return ErrnoFault
		}
	}
	if !mem.putUint32(nevents, uint32(len(events))) {
		return ErrnoFault
	}
	return ErrnoSuccess
}

// clockWait computes the remaining duration of a clock subscription. An
// absolute deadline already in the past, and any clock the host does not
// track, wait for nothing.
func (h *Host) clockWait(sub *subscription) time.Duration {
	switch sub.clockID {
	case clockidRealtime, clockidMonotonic, clockidProcessCputime, clockidThreadCputime:
	default:
		return 0
	}

	if sub.clockFlags&subclockflagsAbstime == 0 {
		return time.Duration(sub.clockTimeout)
	}

	var now uint64
	switch sub.clockID {
	case clockidRealtime:
		now = uint64(time.Now().UnixNano())
	case clockidMonotonic:
		now = h.monotonicNow()
	default:
		return 0
	}
	if sub.clockTimeout <= now {
		return 0
	}
	return time.Duration(sub.clockTimeout - now)
}
