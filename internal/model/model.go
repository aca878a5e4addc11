package model

const (
	AppName = "nxstools"

	// DefaultEntryName is the NXentry base name used by generated components.
	DefaultEntryName = "scan"
	// DefaultInstrumentName is the NXinstrument group name used by generated components.
	DefaultInstrumentName = "instrument"
)

// Args holds the persistent command line arguments.
type Args struct {
	LogLevel   string
	ConfigFile string
	DryRun     bool

	// EnableProfiling serves pprof on localhost while the command runs.
	EnableProfiling bool

	// Server is the device name of the remote server, empty for automatic lookup.
	Server string
}

// DocumentKind is the kind of an XML document kept in a store.
type DocumentKind string

const (
	KindDataSource DocumentKind = "datasource"
	KindComponent  DocumentKind = "component"
)

// FileSuffix is the file name extension of the document kind.
func (k DocumentKind) FileSuffix() string {
	if k == KindDataSource {
		return ".ds.xml"
	}

	return ".xml"
}
