// Package catalog holds the static knowledge about device modules: which
// attributes a module exposes, which template files describe it and how its
// attributes are written into the output file.
package catalog

import (
	"sort"
	"strings"

	"github.com/mitchellh/copystructure"
	"github.com/nexdatas/nxstools/internal/model"
	"github.com/pkg/errors"
)

// AttributePair maps the public attribute of a pool element to the attribute
// of the underlying tango device. An empty Source has no tango counterpart.
type AttributePair struct {
	Public string
	Source string
}

// Module is everything the catalog knows about one module.
type Module struct {
	Name            string
	Pair            *AttributePair
	MultiAttributes []string
	TemplateFiles   []string
}

// HasComponent tells whether a component can be generated for the module.
func (m *Module) HasComponent() bool {
	return len(m.MultiAttributes) > 0 || len(m.TemplateFiles) > 0
}

var (
	motorModules = []string{
		"absbox", "motor_tango", "kohzu", "smchydra", "lom", "oms58", "e6c",
		"omsmaxv", "spk", "pie710", "pie712", "e6c_p09_eh2",
	}

	ctModules = []string{
		"mca8715roi", "onedroi", "sis3820", "sis3302roi",
		"xmcd", "vfcadc", "mythenroi", "mhzdaqp01", "dgg2",
		"tangoattributectctrl",
	}

	zeroDModules = []string{"tip830"}

	oneDModules = []string{"mca_xia"}

	twoDModules = []string{
		"pilatus100k", "pilatus300k", "pilatus1m",
		"pilatus2m", "pilatus6m", "pco4000", "perkinelmerdetector",
		"lambda", "lcxcamera", "pco", "marccd", "limaccd", "eigerpsi",
		"eigerdectris", "perkinelmer",
	}

	ioRegModules = []string{"sis3610"}

	explicitAttributes = map[string]AttributePair{
		"counter_tango":        {"Value", "Counts"},
		"dgg2":                 {"Value", "SampleTime"},
		"mca_8701":             {"Value", "Data"},
		"mca_sis3302new":       {"Value", "Data"},
		"mca_sis3302":          {"Value", "Data"},
		"mythenroi":            {"Value", ""},
		"mca8715roi":           {"Value", ""},
		"sis3302roi":           {"Value", ""},
		"sis3610":              {"Value", "Value"},
		"sis3820":              {"Value", "Counts"},
		"tangoattributectctrl": {"Value", ""},
		"tip551":               {"Value", "Voltage"},
		"tip830":               {"Value", "Counts"},
		"vfcadc":               {"Value", "Counts"},
		"xmcd":                 {"Value", ""},
	}

	pilatusAttributes = []string{
		"DelayTime", "ExposurePeriod", "ExposureTime", "FileDir",
		"FilePostfix", "FilePrefix", "FileStartNum", "LastImageTaken",
		"NbExposures", "NbFrames",
	}

	perkinElmerAttributes = []string{
		"BinningMode", "FileIndex", "ExposureTime", "SkippedAtStart",
		"SummedSaveImages", "SkippedBetweenSaved", "FilesAfterTrigger",
		"FilesBeforeTrigger", "SummedDarkImages", "OutputDirectory",
		"FilePattern", "FileName", "LogFile", "UserComment1", "CameraGain",
		"UserComment2", "UserComment3", "UserComment4", "SaveRawImages",
		"SaveDarkImages", "PerformIntegration", "SaveIntegratedData",
		"SaveSubtracted", "PerformDarkSubtraction",
	}

	peDetectorAttributes = []string{
		"BinningMode", "FileIndex", "ExposureTime", "SkippedAtStart",
		"SummedSaveImages", "SkippedBetweenSaved", "FilesAfterTrigger",
		"FilesBeforeTrigger", "SummedDarkImages", "OutputDirectory",
		"FilePattern", "FileName", "LogFile", "UserComment1",
		"UserComment2", "UserComment3", "UserComment4", "SaveRawImages",
		"SaveDarkImages", "PerformIntegration", "SaveIntegratedData",
		"SaveSubtracted", "PerformDarkSubtraction", "CameraGain",
	}

	lambdaAttributes = []string{
		"TriggerMode", "ShutterTime", "DelayTime", "FrameNumbers", "ThreadNo",
		"EnergyThreshold", "OperatingMode", "ConfigFilePath", "SaveAllImages",
		"FilePrefix", "FileStartNum", "FilePreExt", "FilePostfix",
		"SaveFilePath", "SaveFileName", "LatestImageNumber", "LiveMode",
		"TotalLossFrames", "CompressorShuffle", "CompressionRate",
		"CompressionEnabled", "Layout", "ShutterTimeMax", "ShutterTimeMin",
		"Width", "Height", "Depth", "LiveFrameNo", "DistortionCorrection",
		"LiveLastImageData",
	}

	eigerDectrisAttributes = []string{
		"AutoSummationEnabled", "BitDepth", "CountTime", "Description",
		"EnergyThreshold", "FlatFieldEnabled", "FrameTime", "Humidity",
		"NbImages", "NbTriggers", "PhotonEnergy", "RateCorrectionEnabled",
		"ReadoutTime", "Temperature", "TriggerMode", "Wavelength",
	}

	multiAttributes = map[string][]string{
		"pilatus100k":         pilatusAttributes,
		"pilatus300k":         pilatusAttributes,
		"pilatus1m":           pilatusAttributes,
		"pilatus2m":           pilatusAttributes,
		"pilatus6m":           pilatusAttributes,
		"pilatus":             pilatusAttributes,
		"perkinelmerdetector": perkinElmerAttributes,
		"pedetector":          peDetectorAttributes,
		"mythen": {
			"Counts1", "Counts2", "CountsMax", "CountsTotal", "ExposureTime",
			"FileDir", "FileIndex", "FilePrefix", "LastImage", "RoI1", "RoI2",
		},
		"lambda":       lambdaAttributes,
		"lambda2m":     lambdaAttributes,
		"eigerdectris": eigerDectrisAttributes,
	}

	templateFiles = map[string][]string{
		"pilatus100k": pilatusTemplates("pilatus100k"),
		"pilatus300k": pilatusTemplates("pilatus300k"),
		"pilatus1m":   pilatusTemplates("pilatus1m"),
		"pilatus2m":   pilatusTemplates("pilatus2m"),
		"pilatus6m":   pilatusTemplates("pilatus6m"),
		"pilatus":     pilatusTemplates("pilatus"),
		"lambda":      {"lambda.xml", "lambda_external_data.ds.xml"},
		"lambda2m": {
			"lambda2m.xml",
			"lambda2m_m1_external_data.ds.xml",
			"lambda2m_m2_external_data.ds.xml",
			"lambda2m_m3_external_data.ds.xml",
		},
		"eigerdectris": {
			"eigerdectris.xml",
			"eigerdectris_description_cb.ds.xml",
			"eigerdectris_stepindex.ds.xml",
			"eigerdectris_triggermode_cb.ds.xml",
		},
	}

	pairs = buildPairs()
)

func pilatusTemplates(variant string) []string {
	return []string{
		"pilatus.xml",
		"pilatus_postrun.ds.xml",
		variant + "_description.ds.xml",
		"pilatus_filestartnum_cb.ds.xml",
	}
}

func buildPairs() map[string]AttributePair {
	out := make(map[string]AttributePair, len(explicitAttributes)+len(motorModules))
	for name, pair := range explicitAttributes {
		out[name] = pair
	}

	for _, name := range motorModules {
		out[name] = AttributePair{Public: "Position", Source: "Position"}
	}

	for _, group := range [][]string{ctModules, zeroDModules, oneDModules} {
		for _, name := range group {
			if _, ok := out[name]; !ok {
				out[name] = AttributePair{Public: "Value"}
			}
		}
	}

	return out
}

func key(module string) string {
	return strings.ToLower(strings.TrimSpace(module))
}

// Lookup returns a copy of what the catalog knows about module.
func Lookup(module string) (*Module, error) {
	name := key(module)
	m := &Module{Name: name}

	if pair, ok := pairs[name]; ok {
		p := pair
		m.Pair = &p
	}

	if attrs, ok := multiAttributes[name]; ok {
		m.MultiAttributes = copyStrings(attrs)
	}

	if files, ok := templateFiles[name]; ok {
		m.TemplateFiles = copyStrings(files)
	}

	if m.Pair == nil && !m.HasComponent() {
		return nil, errors.Wrap(model.ErrUnknownModule, module)
	}

	return m, nil
}

// Attributes returns the attribute pair of module.
func Attributes(module string) (AttributePair, bool) {
	pair, ok := pairs[key(module)]
	return pair, ok
}

// MultiAttributes returns a copy of the attribute list of module.
func MultiAttributes(module string) ([]string, bool) {
	attrs, ok := multiAttributes[key(module)]
	if !ok {
		return nil, false
	}

	return copyStrings(attrs), true
}

// TemplateFiles returns a copy of the template bundle of module.
func TemplateFiles(module string) ([]string, bool) {
	files, ok := templateFiles[key(module)]
	if !ok {
		return nil, false
	}

	return copyStrings(files), true
}

func IsMotor(module string) bool {
	return contains(motorModules, key(module))
}

func IsCounter(module string) bool {
	return contains(ctModules, key(module))
}

func Is2D(module string) bool {
	return contains(twoDModules, key(module))
}

func IsIORegister(module string) bool {
	return contains(ioRegModules, key(module))
}

// MotorModules returns the modules handled as motors.
func MotorModules() []string { return copyStrings(motorModules) }

// CounterModules returns the counter/timer modules.
func CounterModules() []string { return copyStrings(ctModules) }

// ZeroDModules returns the 0D experimental channel modules.
func ZeroDModules() []string { return copyStrings(zeroDModules) }

// OneDModules returns the 1D experimental channel modules.
func OneDModules() []string { return copyStrings(oneDModules) }

// TwoDModules returns the 2D detector modules.
func TwoDModules() []string { return copyStrings(twoDModules) }

// IORegisterModules returns the I/O register modules.
func IORegisterModules() []string { return copyStrings(ioRegModules) }

// ComponentModules lists the modules a component can be generated for.
func ComponentModules() []string {
	seen := map[string]bool{}
	for name := range multiAttributes {
		seen[name] = true
	}

	for name := range templateFiles {
		seen[name] = true
	}

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}

	sort.Strings(out)

	return out
}

func contains(list []string, name string) bool {
	for _, n := range list {
		if n == name {
			return true
		}
	}

	return false
}

func copyStrings(in []string) []string {
	out, err := copystructure.Copy(in)
	if err != nil {
		// a slice of strings is always copyable
		panic(err)
	}

	return out.([]string)
}
