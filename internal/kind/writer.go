package kind

import (
	"strings"
)

// WriterCommand enumerates the data writer lifecycle commands.
type WriterCommand uint8

const (
	OpenFile WriterCommand = iota
	SetData
	OpenEntry
	WriteRecord
	CloseEntry
	CloseFile
)

const (
	OpenFileStr    = "openfile"
	SetDataStr     = "setdata"
	OpenEntryStr   = "openentry"
	WriteRecordStr = "record"
	CloseEntryStr  = "closeentry"
	CloseFileStr   = "closefile"
)

// WriterCommands lists the writer commands in lifecycle order.
func WriterCommands() []WriterCommand {
	return []WriterCommand{OpenFile, SetData, OpenEntry, WriteRecord, CloseEntry, CloseFile}
}

func (c WriterCommand) String() string {
	switch c {
	case OpenFile:
		return OpenFileStr
	case SetData:
		return SetDataStr
	case OpenEntry:
		return OpenEntryStr
	case WriteRecord:
		return WriteRecordStr
	case CloseEntry:
		return CloseEntryStr
	case CloseFile:
		return CloseFileStr
	default:
		return "unknown"
	}
}

// MinArgs is the number of positional arguments the command needs.
func (c WriterCommand) MinArgs() int {
	switch c {
	case OpenFile, SetData, OpenEntry, WriteRecord:
		return 1
	default:
		return 0
	}
}

func WriterCommandFromString(str string) (WriterCommand, error) {
	switch strings.ToLower(str) {
	case OpenFileStr:
		return OpenFile, nil
	case SetDataStr:
		return SetData, nil
	case OpenEntryStr:
		return OpenEntry, nil
	case WriteRecordStr:
		return WriteRecord, nil
	case CloseEntryStr:
		return CloseEntry, nil
	case CloseFileStr:
		return CloseFile, nil
	default:
		return 0, ErrUnknownCommandKind
	}
}
