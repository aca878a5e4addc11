package tasks

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/nexdatas/nxstools/internal/datawriter"
	"github.com/pkg/errors"
)

// StepStatus has status about a step, to be reported as part of the overall task.
type StepStatus struct {
	Step    string `json:"step"`
	Status  string `json:"status"`
	Details string `json:"details,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewStepStatus will create a new step status struct
func NewStepStatus(stepName string, state State, details string, err error) *StepStatus {
	status := &StepStatus{
		Step:    stepName,
		Status:  string(state),
		Details: details,
	}

	if err != nil {
		status.Error = err.Error()
	}

	return status
}

func (s *StepStatus) AsLogFields() []any {
	return []any{
		"task", s.Step,
		"status", s.Status,
		"details", s.Details,
		"error", s.Error,
	}
}

// Step is a unit of work. Multiple steps accomplish a task.
type Step interface {
	// Name of this step
	Name() string
	// Run will execute the code to accomplish this step
	Run(ctx context.Context, writer datawriter.Writer, data sharedData) (string, error)
}

type openFileStep struct {
	name     string
	fileName string
}

// OpenFileStep will open the file and remember its name in sharedData.
func OpenFileStep(fileName string) Step {
	return &openFileStep{
		name:     "OpenFile",
		fileName: fileName,
	}
}

func (t *openFileStep) Name() string {
	return t.name
}

func (t *openFileStep) Run(ctx context.Context, writer datawriter.Writer, data sharedData) (string, error) {
	if err := writer.OpenFile(ctx, t.fileName); err != nil {
		return "Failed to open file", err
	}

	data[fileNameKey] = t.fileName

	return "Opened file " + t.fileName, nil
}

type setDataStep struct {
	name string
	json string
}

// SetDataStep will set the global JSON data.
func SetDataStep(name, json string) Step {
	return &setDataStep{
		name: name,
		json: json,
	}
}

func (t *setDataStep) Name() string {
	return t.name
}

func (t *setDataStep) Run(ctx context.Context, writer datawriter.Writer, _ sharedData) (string, error) {
	if err := writer.SetData(ctx, t.json); err != nil {
		return "Failed to set JSON data", err
	}

	return "JSON data set", nil
}

type openEntryStep struct {
	name string
	xml  string
}

// OpenEntryStep will open a new entry configured by the XML settings.
func OpenEntryStep(xml string) Step {
	return &openEntryStep{
		name: "OpenEntry",
		xml:  xml,
	}
}

func (t *openEntryStep) Name() string {
	return t.name
}

func (t *openEntryStep) Run(ctx context.Context, writer datawriter.Writer, _ sharedData) (string, error) {
	if err := writer.OpenEntry(ctx, t.xml); err != nil {
		return "Failed to open entry", err
	}

	return "Entry opened", nil
}

type recordStep struct {
	name    string
	records []string
}

// RecordStep will record every step and count them in sharedData.
func RecordStep(records []string) Step {
	return &recordStep{
		name:    "Record",
		records: records,
	}
}

func (t *recordStep) Name() string {
	return t.name
}

func (t *recordStep) Run(ctx context.Context, writer datawriter.Writer, data sharedData) (string, error) {
	for i, record := range t.records {
		if err := writer.Record(ctx, record); err != nil {
			data[recordCountKey] = i
			return "Failed to record step " + strconv.Itoa(i+1), err
		}
	}

	data[recordCountKey] = len(t.records)

	return "Recorded " + strconv.Itoa(len(t.records)) + " steps", nil
}

type closeEntryStep struct {
	name string
}

// CloseEntryStep will close the current entry.
func CloseEntryStep() Step {
	return &closeEntryStep{
		name: "CloseEntry",
	}
}

func (t *closeEntryStep) Name() string {
	return t.name
}

func (t *closeEntryStep) Run(ctx context.Context, writer datawriter.Writer, _ sharedData) (string, error) {
	if err := writer.CloseEntry(ctx); err != nil {
		return "Failed to close entry", err
	}

	return "Entry closed", nil
}

type closeFileStep struct {
	name string
}

// CloseFileStep will close the file opened earlier, per the information in sharedData
func CloseFileStep() Step {
	return &closeFileStep{
		name: "CloseFile",
	}
}

func (t *closeFileStep) Name() string {
	return t.name
}

func (t *closeFileStep) Run(ctx context.Context, writer datawriter.Writer, data sharedData) (string, error) {
	fileName, ok := data[fileNameKey].(string)
	if !ok {
		return "File to close unknown", errors.New("missing file name")
	}

	if err := writer.CloseFile(ctx); err != nil {
		return "Failed to close file", err
	}

	count, _ := data[recordCountKey].(int)
	slog.Info("Closed file", "fileName", fileName, "records", count)

	return "Closed " + fileName + " with " + strconv.Itoa(count) + " records", nil
}
