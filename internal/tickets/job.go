package tickets

import (
	"sync"

	"github.com/mohammad-safakhou/itinerary/models"
)

// Job is the handle for one submitted request.
type Job struct {
	id   string
	req  models.ItineraryRequest
	done chan struct{}

	mu        sync.RWMutex
	finished  bool
	itinerary string
	err       error
}

func newJob(id string, req models.ItineraryRequest) *Job {
	return &Job{id: id, req: req, done: make(chan struct{})}
}

func (j *Job) ID() string { return j.id }

// Request returns the normalised request the job is running.
func (j *Job) Request() models.ItineraryRequest { return j.req }

// Done is closed once the job has a result.
func (j *Job) Done() <-chan struct{} { return j.done }

// Result returns the itinerary or the pipeline error. Both are zero while
// the job is still running.
func (j *Job) Result() (string, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.itinerary, j.err
}

// Ticket is the externally visible snapshot of the job.
func (j *Job) Ticket() models.Ticket {
	j.mu.RLock()
	defer j.mu.RUnlock()
	t := models.Ticket{ID: j.id, Status: models.TicketProcessing}
	if !j.finished {
		return t
	}
	if j.err != nil {
		t.Status = models.TicketError
		t.Message = j.err.Error()
		return t
	}
	t.Status = models.TicketCompleted
	t.Itinerary = j.itinerary
	return t
}

func (j *Job) finish(itinerary string, err error) {
	j.mu.Lock()
	if j.finished {
		j.mu.Unlock()
		return
	}
	j.finished = true
	j.itinerary = itinerary
	j.err = err
	j.mu.Unlock()
	close(j.done)
}
