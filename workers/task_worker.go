package workers

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/sheetlot/scanbackend/realtime"
	"github.com/sheetlot/scanbackend/repository"
	"github.com/sheetlot/scanbackend/services"
)

// TaskType constants
const (
	TaskExtraction = "extraction"
	TaskAI         = "ai"
)

type TaskJob struct {
	EntityID  string
	SessionID string
	TaskType  string
}

// TaskProcessor runs crop extraction and AI metadata jobs on a fixed worker
// pool. A pending map keyed by entity and task keeps near-simultaneous
// requests for the same work from queueing twice.
type TaskProcessor struct {
	JobQueue chan TaskJob
	Scans    *services.ScanService
	Records  repository.RecordRepositoryInterface
	Hub      *realtime.Hub
	Wg       sync.WaitGroup
	StopChan chan struct{}
	Pending  map[string]bool
	Mutex    sync.Mutex
}

func NewTaskProcessor(scans *services.ScanService, records repository.RecordRepositoryInterface, hub *realtime.Hub, queueSize, numWorkers int) *TaskProcessor {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	proc := &TaskProcessor{
		JobQueue: make(chan TaskJob, queueSize),
		Scans:    scans,
		Records:  records,
		Hub:      hub,
		StopChan: make(chan struct{}),
		Pending:  make(map[string]bool),
	}
	proc.Wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go proc.worker(i)
	}
	log.Printf("Started %d task worker(s) with queue size %d", numWorkers, queueSize)
	return proc
}

func (tp *TaskProcessor) worker(id int) {
	defer tp.Wg.Done()

	log.Printf("Task worker %d started", id)
	for {
		select {
		case job, ok := <-tp.JobQueue:
			if !ok {
				log.Printf("Task worker %d stopping: Job queue closed", id)
				return
			}

			pendingKey := fmt.Sprintf("%s:%s", job.EntityID, job.TaskType)
			log.Printf("Worker %d: Received task '%s' for entity %s", id, job.TaskType, job.EntityID)

			if err := tp.Records.MarkTaskProcessing(job.EntityID, job.TaskType); err != nil {
				log.Printf("Worker %d: ERROR marking %s processing for %s: %v. Skipping job.", id, job.TaskType, job.EntityID, err)
				tp.clearPending(pendingKey)
				continue
			}
			tp.broadcast(job, "processing", nil)

			var taskErr error
			switch job.TaskType {
			case TaskExtraction:
				taskErr = tp.processExtractionTask(job)
			case TaskAI:
				taskErr = tp.processAITask(job)
			default:
				taskErr = fmt.Errorf("unknown task type '%s'", job.TaskType)
				log.Printf("Worker %d: ERROR %v for %s", id, taskErr, job.EntityID)
			}

			if dbErr := tp.Records.SetTaskResult(job.EntityID, job.TaskType, taskErr); dbErr != nil {
				log.Printf("Worker %d: ERROR updating %s result for %s: %v", id, job.TaskType, job.EntityID, dbErr)
			}
			if taskErr != nil {
				tp.broadcast(job, "error", taskErr)
			} else {
				tp.broadcast(job, "done", nil)
			}

			tp.clearPending(pendingKey)

		case <-tp.StopChan:
			log.Printf("Task worker %d stopping: Stop signal received", id)
			return
		}
	}
}

// processExtractionTask cuts the entity's scan into per-cell crops
func (tp *TaskProcessor) processExtractionTask(job TaskJob) error {
	cropPaths, err := tp.Scans.RunExtraction(job.EntityID, job.SessionID)
	if err != nil {
		log.Printf("Worker: ERROR extracting crops for %s: %v", job.EntityID, err)
		return err
	}
	log.Printf("Worker: Generated %d crops for %s", len(cropPaths), job.EntityID)
	return nil
}

// processAITask runs the AI collaborator and merges recognized fields
func (tp *TaskProcessor) processAITask(job TaskJob) error {
	fields, err := tp.Scans.RunAIExtraction(context.Background(), job.EntityID, job.SessionID)
	if err != nil {
		// partial fields are already merged; only the failure is reported
		log.Printf("Worker: ERROR during AI extraction for %s (kept %d fields): %v", job.EntityID, len(fields), err)
		return err
	}
	log.Printf("Worker: AI extraction complete for %s: %d fields", job.EntityID, len(fields))
	return nil
}

// QueueJob queues a specific task if not already pending
func (tp *TaskProcessor) QueueJob(job TaskJob) bool {
	pendingKey := fmt.Sprintf("%s:%s", job.EntityID, job.TaskType)

	tp.Mutex.Lock()
	if tp.Pending[pendingKey] {
		tp.Mutex.Unlock()
		return false
	}
	tp.Pending[pendingKey] = true
	tp.Mutex.Unlock()

	select {
	case tp.JobQueue <- job:
		log.Printf("Queued task '%s' for entity %s", job.TaskType, job.EntityID)
		return true
	default:
		log.Printf("WARNING: Task queue full. Failed to queue task '%s' for entity %s", job.TaskType, job.EntityID)
		tp.clearPending(pendingKey)
		return false
	}
}

func (tp *TaskProcessor) clearPending(pendingKey string) {
	tp.Mutex.Lock()
	delete(tp.Pending, pendingKey)
	tp.Mutex.Unlock()
}

func (tp *TaskProcessor) broadcast(job TaskJob, status string, taskErr error) {
	if tp.Hub == nil {
		return
	}
	errStr := ""
	if taskErr != nil {
		errStr = taskErr.Error()
	}
	tp.Hub.BroadcastTaskEvent(job.EntityID, job.TaskType, status, errStr)
}

func (tp *TaskProcessor) Stop() {
	log.Println("Stopping task workers...")
	close(tp.StopChan)
	tp.Wg.Wait()
	log.Println("All task workers stopped")
}
