// Package fanout runs a read-only probe concurrently across every
// cluster member and aggregates the results without ever
// short-circuiting on the first failure — spec §4.3/§4.6/§8.8 require
// that a single unreachable node during a global precondition check be
// reported as one failure among many, not abort the whole check. This
// generalizes the teacher's RunParallel (which returns on first error)
// into a full aggregate-and-report runner.
package fanout

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/thanegill/proxmox-upgrade-cluster/internal/logging"
)

// Task is one unit of fan-out work: Name identifies the node (or other
// subject) the task runs against.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Result pairs a Task with its outcome. ID is a stable per-invocation
// identifier (spec §4.6: "a stable task identifier suitable for
// correlating log lines"), not derived from Name so that repeated runs
// against the same node don't collide in log correlation.
type Result struct {
	ID    string
	Name  string
	Err   error
}

// Report is the aggregated outcome of a fan-out run.
type Report struct {
	Results []Result
}

// Failures returns every Result whose Err is non-nil, in task order.
func (r Report) Failures() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// OK reports whether every task in the run succeeded.
func (r Report) OK() bool {
	return len(r.Failures()) == 0
}

// Run executes every task concurrently, never aborting early on a
// failing task, and returns once all have completed. log is tagged per
// task with WithPrefix at verbosity 4+ (spec §4.6: "fan-out tasks are
// logged with a per-node prefix at -vvvv and above").
func Run(ctx context.Context, log logging.Logger, tasks []Task) Report {
	results := make([]Result, len(tasks))
	var wg sync.WaitGroup

	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task Task) {
			defer wg.Done()

			id := uuid.NewString()
			taskLog := log
			if log.Enabled(logging.LevelDebug3) {
				taskLog = log.WithPrefix(task.Name)
			}

			err := task.Run(ctx)
			if err != nil {
				taskLog.Debugf("fan-out task %s (%s) failed: %v", id, task.Name, err)
			}
			results[i] = Result{ID: id, Name: task.Name, Err: err}
		}(i, task)
	}

	wg.Wait()
	return Report{Results: results}
}
