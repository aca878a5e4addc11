package tasks

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/nexdatas/nxstools/internal/datawriter"
	"github.com/nexdatas/nxstools/internal/model"
	"github.com/nexdatas/nxstools/internal/tango"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStep struct{}

func (s *fakeStep) Name() string {
	return "fake step"
}

func (s *fakeStep) Run(_ context.Context, _ datawriter.Writer, _ sharedData) (string, error) {
	return "", nil
}

type fakeTask struct {
	session *Session
	steps   []Step
}

func newFakeTask() *fakeTask {
	return &fakeTask{
		session: &Session{},
		steps:   []Step{&fakeStep{}},
	}
}

func (t *fakeTask) Name() string {
	return "fake task"
}

func (t *fakeTask) Session() *Session {
	return t.session
}

func (t *fakeTask) Steps() []Step {
	return t.steps
}

type fakePublisher struct {
	states []State
	last   *TaskStatus
}

func (m *fakePublisher) Publish(_ context.Context, _ string, state State, status json.RawMessage) {
	m.states = append(m.states, state)
	m.last = &TaskStatus{}
	_ = json.Unmarshal(status, m.last)
}

func TestTaskRunnerHandlePanic(t *testing.T) {
	task := newFakeTask()
	runner := NewTaskRunner(&fakePublisher{}, task)

	err := runner.Run(context.Background(), nil)

	if assert.NotNil(t, err) {
		assert.Equal(t, "Task fatal error, check logs for details", err.Error())
	}
}

func newDryRunWriter(t *testing.T) datawriter.Writer {
	t.Helper()

	d, err := tango.NewDryRun(afero.NewMemMapFs(), "", "NXSConfigServer", "NXSDataWriter")
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	w, err := datawriter.Open(context.Background(), d, tango.DryRunDataWriter, tango.ReadyOptions{MaxAttempts: 1}, logger.WithField("component", "test"))
	require.NoError(t, err)

	return w
}

func TestSessionTaskSteps(t *testing.T) {
	task := NewSessionTask(&Session{FileName: "/tmp/a.h5", XMLSettings: "<definition/>"})

	names := []string{}
	for _, s := range task.Steps() {
		names = append(names, s.Name())
	}

	assert.Equal(t, []string{"OpenFile", "OpenEntry", "Record", "CloseEntry", "CloseFile"}, names)

	task = NewSessionTask(&Session{GlobalData: "{}", FinalData: "{}"})
	assert.Len(t, task.Steps(), 7)
}

func TestSessionTaskRun(t *testing.T) {
	ctx := context.Background()
	w := newDryRunWriter(t)
	pub := &fakePublisher{}

	runner := NewTaskRunner(pub, NewSessionTask(&Session{
		FileName:    "/tmp/scan_001.h5",
		GlobalData:  `{"data": {"title": "test"}}`,
		XMLSettings: `<definition><group type="NXentry" name="scan"/></definition>`,
		Records:     []string{`{"data": {"c": 1}}`, `{"data": {"c": 2}}`},
		FinalData:   `{"data": {"end_time": "now"}}`,
	}))

	require.NoError(t, runner.Run(ctx, w))

	state, err := w.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, tango.StateOn, state)

	status := runner.Status()
	assert.Equal(t, string(Succeeded), status.Status)
	assert.Equal(t, "", status.ActiveStep)

	for _, s := range status.Steps {
		assert.Equal(t, string(Succeeded), s.Status, s.Step)
	}

	assert.Equal(t, "Recorded 2 steps", status.Steps[3].Details)
	assert.Equal(t, "Closed /tmp/scan_001.h5 with 2 records", status.Steps[6].Details)
	assert.Equal(t, Succeeded, pub.states[len(pub.states)-1])
	assert.Equal(t, "Task completed successfully", pub.last.Details)
}

func TestSessionTaskStepFailure(t *testing.T) {
	ctx := context.Background()
	w := newDryRunWriter(t)
	pub := &fakePublisher{}

	runner := NewTaskRunner(pub, NewSessionTask(&Session{
		FileName:    "/tmp/scan_002.h5",
		XMLSettings: "<definition/>",
		Records:     []string{`{"data": {"c": 1}}`, `not json`},
	}))

	err := runner.Run(ctx, w)
	assert.ErrorIs(t, err, model.ErrWrongParameter)

	status := runner.Status()
	assert.Equal(t, string(Failed), status.Status)
	assert.Equal(t, "Record", status.ActiveStep)
	assert.Equal(t, "Task failed at step Record", status.Details)
	assert.Equal(t, "Failed to record step 2", status.Steps[2].Details)
	assert.Equal(t, string(Pending), status.Steps[3].Status)
	assert.Equal(t, Failed, pub.states[len(pub.states)-1])
}

func TestCloseFileStepNeedsOpenFile(t *testing.T) {
	_, err := CloseFileStep().Run(context.Background(), nil, sharedData{})
	assert.EqualError(t, err, "missing file name")
}
