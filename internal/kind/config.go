package kind

import (
	"errors"
	"strings"
)

// ConfigCommand enumerates the configuration server query commands.
type ConfigCommand uint8

const (
	List ConfigCommand = iota
	Show
	Get
	Sources
	Record
	Servers
)

const (
	ListStr    = "list"
	ShowStr    = "show"
	GetStr     = "get"
	SourcesStr = "sources"
	RecordStr  = "record"
	ServersStr = "servers"
)

var (
	ErrUnknownCommandKind = errors.New("unknown command kind")
)

// ConfigCommands lists the configuration commands in display order.
func ConfigCommands() []ConfigCommand {
	return []ConfigCommand{List, Show, Get, Sources, Record, Servers}
}

func (c ConfigCommand) String() string {
	switch c {
	case List:
		return ListStr
	case Show:
		return ShowStr
	case Get:
		return GetStr
	case Sources:
		return SourcesStr
	case Record:
		return RecordStr
	case Servers:
		return ServersStr
	default:
		return "unknown"
	}
}

// MinArgs is the number of positional arguments the command needs.
func (c ConfigCommand) MinArgs() int {
	switch c {
	case Show, Get, Sources, Record:
		return 1
	default:
		return 0
	}
}

func ConfigCommandFromString(str string) (ConfigCommand, error) {
	switch strings.ToLower(str) {
	case ListStr:
		return List, nil
	case ShowStr:
		return Show, nil
	case GetStr:
		return Get, nil
	case SourcesStr:
		return Sources, nil
	case RecordStr:
		return Record, nil
	case ServersStr:
		return Servers, nil
	default:
		return 0, ErrUnknownCommandKind
	}
}
