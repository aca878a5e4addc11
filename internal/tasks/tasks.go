package tasks

import (
	"context"
	"encoding/json"
	"log/slog"
	"runtime/debug"

	"github.com/nexdatas/nxstools/internal/datawriter"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	fileNameKey    = "fileName"
	recordCountKey = "recordCount"
)

// Miscellaneous
type sharedData map[string]interface{}

// State of a task or a step.
type State string

const (
	Pending   State = "pending"
	Active    State = "active"
	Succeeded State = "succeeded"
	Failed    State = "failed"
)

// TaskStatus has status about a task, and it's steps.
type TaskStatus struct {
	Task       string        `json:"task"`
	Status     string        `json:"status"`
	Details    string        `json:"details,omitempty"`
	Error      string        `json:"error,omitempty"`
	ActiveStep string        `json:"active_step,omitempty"`
	Steps      []*StepStatus `json:"steps"`
}

// NewTaskStatus will generate a new task status struct
func NewTaskStatus(taskName string, state State) *TaskStatus {
	return &TaskStatus{
		Task:   taskName,
		Status: string(state),
	}
}

func (r *TaskStatus) AsLogFields() []any {
	return []any{
		"task", r.Task,
		"status", r.Status,
		"details", r.Details,
		"error", r.Error,
	}
}

func (r *TaskStatus) Marshal() ([]byte, error) {
	respBytes, err := json.Marshal(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal response to json")
	}

	return respBytes, nil
}

// Session describes one file written by the data writer.
type Session struct {
	FileName string
	// GlobalData is the JSON set before the entry is opened, optional.
	GlobalData string
	// XMLSettings is the configuration of the entry.
	XMLSettings string
	// Records are the step JSON data, one per step.
	Records []string
	// FinalData is the JSON set before the entry is closed, optional.
	FinalData string
}

func (s *Session) AsLogFields() []any {
	return []any{
		"fileName", s.FileName,
		"records", len(s.Records),
	}
}

// Task is a unit of work run against a data writer.
// The task multiple steps to accomplish the task.
type Task interface {
	// Name of the task
	Name() string
	// Session is the file that will be written by this task
	Session() *Session
	// Steps is the multiple units of work that will accomplish this task
	Steps() []Step
}

type sessionTask struct {
	name    string
	session *Session
	steps   []Step
}

// NewSessionTask creates the task writing a whole file: open the file and the
// entry, record every step, close the entry and the file.
func NewSessionTask(session *Session) Task {
	steps := []Step{OpenFileStep(session.FileName)}

	if session.GlobalData != "" {
		steps = append(steps, SetDataStep("SetGlobalData", session.GlobalData))
	}

	steps = append(steps,
		OpenEntryStep(session.XMLSettings),
		RecordStep(session.Records),
	)

	if session.FinalData != "" {
		steps = append(steps, SetDataStep("SetFinalData", session.FinalData))
	}

	steps = append(steps, CloseEntryStep(), CloseFileStep())

	return &sessionTask{
		name:    "WriteSession",
		session: session,
		steps:   steps,
	}
}

func (j *sessionTask) Name() string {
	return j.name
}

func (j *sessionTask) Steps() []Step {
	return j.steps
}

func (j *sessionTask) Session() *Session {
	return j.session
}

// Publisher receives the task status after every change.
type Publisher interface {
	Publish(ctx context.Context, target string, state State, status json.RawMessage)
}

// LogPublisher publishes the task status to a logger.
type LogPublisher struct {
	Logger *logrus.Entry
}

func (p *LogPublisher) Publish(_ context.Context, target string, state State, status json.RawMessage) {
	p.Logger.WithFields(logrus.Fields{"target": target, "state": state}).Debug(string(status))
}

// TaskRunner Will run the task by executing the individual steps in the task,
// and reports task status using the publisher.
type TaskRunner struct {
	publisher  Publisher
	task       Task
	taskStatus *TaskStatus
}

// NewTaskRunner creates a TaskRunner to run a specific Task
func NewTaskRunner(publisher Publisher, task Task) *TaskRunner {
	return &TaskRunner{
		publisher:  publisher,
		task:       task,
		taskStatus: NewTaskStatus(task.Name(), Pending),
	}
}

// Status returns the last task status.
func (r *TaskRunner) Status() *TaskStatus {
	return r.taskStatus
}

func (r *TaskRunner) Run(ctx context.Context, writer datawriter.Writer) (err error) {
	slog.With(r.task.Session().AsLogFields()...).Info("Running task", "task", r.task.Name())

	data := sharedData{}
	r.initTaskLog()

	defer func() {
		if rec := recover(); rec != nil {
			err = r.handlePanic(ctx, rec)
		}
	}()

	r.publishTaskUpdate(ctx, Active, "Checking writer state", nil)

	state, err := writer.State(ctx)
	if err != nil {
		r.publishFailed(ctx, 0, "Failed to read writer state", err)
		return errors.Wrap(err, "failed to read writer state")
	}

	slog.Debug("Writer state", "writer", writer.Name(), "state", state)

	for stepID, step := range r.task.Steps() {
		r.publishStepUpdate(ctx, stepID, "Running step")

		details, err := step.Run(ctx, writer, data)
		if err != nil {
			r.publishFailed(ctx, stepID, "Step failure", err)
			return err
		}

		r.publishStepSuccess(ctx, stepID, details)
	}

	r.publishTaskSuccess(ctx)

	return nil
}

func (r *TaskRunner) initTaskLog() {
	steps := r.task.Steps()
	r.taskStatus.Steps = make([]*StepStatus, len(steps))

	for i, step := range steps {
		r.taskStatus.Steps[i] = NewStepStatus(step.Name(), Pending, "", nil)
	}
}

func (r *TaskRunner) handlePanic(ctx context.Context, rec any) error {
	msg := "Panic occurred while running task"
	slog.Error("!!panic occurred", "rec", rec, "stack", string(debug.Stack()))
	slog.Error(msg)
	err := errors.New("Task fatal error, check logs for details")

	r.publishTaskUpdate(ctx, Failed, msg, err)

	return err
}

func (r *TaskRunner) publishStepUpdate(ctx context.Context, stepID int, details string) {
	r.taskStatus.ActiveStep = r.task.Steps()[stepID].Name()
	r.publish(ctx, stepID, Active, Active, details, nil)
}

func (r *TaskRunner) publishStepSuccess(ctx context.Context, stepID int, details string) {
	r.publish(ctx, stepID, Succeeded, Active, details, nil)
}

func (r *TaskRunner) publishFailed(ctx context.Context, stepID int, details string, err error) {
	slog.With(r.task.Session().AsLogFields()...).Error("Task failed", "task", r.task.Name())
	r.publish(ctx, stepID, Failed, Failed, details, err)
}

func (r *TaskRunner) publishTaskSuccess(ctx context.Context) {
	slog.With(r.task.Session().AsLogFields()...).Info("Task completed successfully", "task", r.task.Name())
	r.taskStatus.ActiveStep = ""
	r.publishTaskUpdate(ctx, Succeeded, "Task completed successfully", nil)
}

func (r *TaskRunner) publish(ctx context.Context, stepID int, stepState, taskState State, details string, err error) {
	step := r.task.Steps()[stepID]
	stepStatus := NewStepStatus(step.Name(), stepState, details, err)

	slog.With(r.task.Session().AsLogFields()...).With(stepStatus.AsLogFields()...).Info(details, "step", step.Name())

	r.taskStatus.Steps[stepID] = stepStatus

	var taskDetails string
	if err != nil {
		taskDetails = "Task failed at step " + step.Name()
	}

	r.publishTaskUpdate(ctx, taskState, taskDetails, err)
}

func (r *TaskRunner) publishTaskUpdate(ctx context.Context, state State, details string, err error) {
	r.taskStatus.Status = string(state)
	r.taskStatus.Details = details

	if err != nil {
		r.taskStatus.Error = err.Error()
	}

	slog.With(r.task.Session().AsLogFields()...).Debug("Task update", "task", r.task.Name())

	respBytes, err := r.taskStatus.Marshal()
	if err != nil {
		slog.Error("Failed to marshal task update", "error", err)
		return
	}

	r.publisher.Publish(ctx, r.task.Session().FileName, state, respBytes)
}
