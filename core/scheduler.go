package core

// Sleeper is a pending wake request in the kernel sleep queue
type Sleeper struct {
	WakeTime uint64
	Handler  func(*Sleeper) uint8
	Next     *Sleeper
}

// Sleeper handler result flags
const (
	SF_DONE       = 0
	SF_RESCHEDULE = 1 << 0 // re-insert with the updated WakeTime
	SF_SWITCH     = 1 << 1 // a thread became runnable
)

var sleepList *Sleeper

// InitSleepQueue installs the sleep queue as the wake handler of the
// registered OS timer. The timer honours a single deadline; the queue keeps
// the others and always arms the earliest.
func InitSleepQueue() {
	sleepList = nil
	SetWakeHandler(SleepDispatch)
}

// ScheduleSleeper adds a wake request to the queue
func ScheduleSleeper(s *Sleeper) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	insertSleeper(s)
	if sleepList == s {
		MustOSTimer().IRQSetNextInterrupt(s.WakeTime)
	}
}

// CancelSleeper removes a wake request. The timer deadline is left in place;
// if it fires with nothing due, SleepDispatch just re-arms.
func CancelSleeper(s *Sleeper) bool {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	for p := &sleepList; *p != nil; p = &(*p).Next {
		if *p == s {
			*p = s.Next
			s.Next = nil
			return true
		}
	}
	return false
}

// insertSleeper inserts in WakeTime order, after entries with the same time
func insertSleeper(s *Sleeper) {
	if sleepList == nil || s.WakeTime < sleepList.WakeTime {
		s.Next = sleepList
		sleepList = s
		return
	}

	current := sleepList
	for current.Next != nil && current.Next.WakeTime <= s.WakeTime {
		current = current.Next
	}

	s.Next = current.Next
	current.Next = s
}

// SleepDispatch runs the handlers of all due sleepers and arms the timer for
// the next one. It is the OS timer wake callback and runs in interrupt
// context; it returns whether a context switch is needed.
func SleepDispatch() bool {
	timer := MustOSTimer()
	now := timer.IRQGetTime()
	switchNeeded := false

	for sleepList != nil && sleepList.WakeTime <= now {
		s := sleepList
		sleepList = s.Next
		s.Next = nil

		result := s.Handler(s)
		if result&SF_SWITCH != 0 {
			switchNeeded = true
		}
		if result&SF_RESCHEDULE != 0 {
			insertSleeper(s)
		}
	}

	if sleepList != nil {
		timer.IRQSetNextInterrupt(sleepList.WakeTime)
	}
	return switchNeeded
}

// NextWake returns the earliest queued wake time
func NextWake() (uint64, bool) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	if sleepList == nil {
		return 0, false
	}
	return sleepList.WakeTime, true
}
