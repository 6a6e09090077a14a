package internal

import "sync"

// DoneChan is closed exactly once when the thing it represents has fully
// stopped.
type DoneChan chan struct{}

// DoneFunc begins a shutdown and returns the channel that will close when
// it finishes.
type DoneFunc func() DoneChan

// WrapWaitGroup returns a DoneChan that closes once wg.Wait returns.
func WrapWaitGroup(wg *sync.WaitGroup) DoneChan {
	done := make(DoneChan)
	go func() {
		wg.Wait()
		close(done)
	}()
	return done
}

// Combine returns a DoneChan that closes once both first and second have
// closed, used to join a pool shutdown with a ticker shutdown into one
// wait point.
func Combine(first, second DoneChan) DoneChan {
	done := make(DoneChan)
	go func() {
		<-first
		<-second
		close(done)
	}()
	return done
}
