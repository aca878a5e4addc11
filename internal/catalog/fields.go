package catalog

import (
	"strings"

	"github.com/mitchellh/copystructure"
	"github.com/nexdatas/nxstools/internal/descriptor"
)

// FieldSpec describes how an attribute is written as a NeXus field.
type FieldSpec struct {
	Strategy descriptor.Strategy
	Type     string
	Units    string
}

// DefaultFieldSpec applies to attributes the catalog has no entry for.
var DefaultFieldSpec = FieldSpec{Strategy: descriptor.StrategyFinal, Type: "NX_CHAR"}

var (
	step  = descriptor.StrategyStep
	final = descriptor.StrategyFinal
	ini   = descriptor.StrategyInit

	pilatusFields = map[string]FieldSpec{
		"DelayTime":      {final, "NX_FLOAT64", "s"},
		"ExposurePeriod": {step, "NX_FLOAT64", "s"},
		"ExposureTime":   {step, "NX_FLOAT64", "s"},
		"FileDir":        {final, "NX_CHAR", ""},
		"FilePostfix":    {final, "NX_CHAR", ""},
		"FilePrefix":     {final, "NX_CHAR", ""},
		"FileStartNum":   {step, "NX_UINT32", ""},
		"LastImageTaken": {step, "NX_CHAR", ""},
		"NbExposures":    {final, "NX_UINT32", ""},
		"NbFrames":       {final, "NX_UINT32", ""},
	}

	perkinElmerFields = map[string]FieldSpec{
		"BinningMode":            {final, "NX_INT32", ""},
		"FileIndex":              {step, "NX_UINT32", ""},
		"ExposureTime":           {step, "NX_FLOAT64", "s"},
		"SkippedAtStart":         {final, "NX_INT32", ""},
		"SummedSaveImages":       {final, "NX_INT32", ""},
		"SkippedBetweenSaved":    {final, "NX_INT32", ""},
		"FilesAfterTrigger":      {final, "NX_INT32", ""},
		"FilesBeforeTrigger":     {final, "NX_INT32", ""},
		"SummedDarkImages":       {final, "NX_INT32", ""},
		"CameraGain":             {final, "NX_FLOAT64", ""},
		"SaveRawImages":          {final, "NX_BOOLEAN", ""},
		"SaveDarkImages":         {final, "NX_BOOLEAN", ""},
		"PerformIntegration":     {final, "NX_BOOLEAN", ""},
		"SaveIntegratedData":     {final, "NX_BOOLEAN", ""},
		"SaveSubtracted":         {final, "NX_BOOLEAN", ""},
		"PerformDarkSubtraction": {final, "NX_BOOLEAN", ""},
	}

	lambdaFields = map[string]FieldSpec{
		"TriggerMode":          {final, "NX_INT32", ""},
		"ShutterTime":          {step, "NX_FLOAT64", "ms"},
		"DelayTime":            {final, "NX_FLOAT64", "ms"},
		"FrameNumbers":         {final, "NX_INT32", ""},
		"ThreadNo":             {final, "NX_INT32", ""},
		"EnergyThreshold":      {final, "NX_FLOAT64", "keV"},
		"FileStartNum":         {step, "NX_INT32", ""},
		"SaveAllImages":        {final, "NX_BOOLEAN", ""},
		"LatestImageNumber":    {step, "NX_INT32", ""},
		"LiveMode":             {final, "NX_BOOLEAN", ""},
		"TotalLossFrames":      {final, "NX_INT32", ""},
		"CompressorShuffle":    {final, "NX_INT32", ""},
		"CompressionRate":      {final, "NX_INT32", ""},
		"CompressionEnabled":   {final, "NX_BOOLEAN", ""},
		"ShutterTimeMax":       {final, "NX_FLOAT64", "ms"},
		"ShutterTimeMin":       {final, "NX_FLOAT64", "ms"},
		"Width":                {final, "NX_INT32", ""},
		"Height":               {final, "NX_INT32", ""},
		"Depth":                {final, "NX_INT32", ""},
		"LiveFrameNo":          {final, "NX_INT32", ""},
		"DistortionCorrection": {final, "NX_BOOLEAN", ""},
	}

	fieldSpecs = map[string]map[string]FieldSpec{
		"pilatus100k":         pilatusFields,
		"pilatus300k":         pilatusFields,
		"pilatus1m":           pilatusFields,
		"pilatus2m":           pilatusFields,
		"pilatus6m":           pilatusFields,
		"pilatus":             pilatusFields,
		"perkinelmerdetector": perkinElmerFields,
		"pedetector":          perkinElmerFields,
		"mythen": {
			"Counts1":      {step, "NX_UINT32", ""},
			"Counts2":      {step, "NX_UINT32", ""},
			"CountsMax":    {step, "NX_UINT32", ""},
			"CountsTotal":  {step, "NX_UINT32", ""},
			"ExposureTime": {step, "NX_FLOAT64", "s"},
			"FileIndex":    {step, "NX_UINT32", ""},
			"LastImage":    {step, "NX_CHAR", ""},
			"RoI1":         {final, "NX_UINT32", ""},
			"RoI2":         {final, "NX_UINT32", ""},
		},
		"lambda":   lambdaFields,
		"lambda2m": lambdaFields,
		"eigerdectris": {
			"AutoSummationEnabled":  {final, "NX_BOOLEAN", ""},
			"BitDepth":              {final, "NX_INT", ""},
			"CountTime":             {step, "NX_FLOAT64", "s"},
			"Description":           {ini, "NX_CHAR", ""},
			"EnergyThreshold":       {final, "NX_FLOAT64", "eV"},
			"FlatFieldEnabled":      {final, "NX_BOOLEAN", ""},
			"FrameTime":             {step, "NX_FLOAT64", "s"},
			"Humidity":              {final, "NX_FLOAT64", "%"},
			"NbImages":              {step, "NX_UINT64", ""},
			"NbTriggers":            {final, "NX_UINT64", ""},
			"PhotonEnergy":          {final, "NX_FLOAT64", "eV"},
			"RateCorrectionEnabled": {final, "NX_BOOLEAN", ""},
			"ReadoutTime":           {final, "NX_FLOAT64", "s"},
			"Temperature":           {final, "NX_FLOAT64", "degC"},
			"TriggerMode":           {final, "NX_CHAR", ""},
			"Wavelength":            {final, "NX_FLOAT64", "Angstrom"},
		},
	}

	// pair modules write their single value with every step
	pairFieldSpec = FieldSpec{Strategy: descriptor.StrategyStep, Type: "NX_FLOAT64"}
)

// Field returns how attribute of module is written.
func Field(module, attribute string) FieldSpec {
	name := key(module)
	if specs, ok := fieldSpecs[name]; ok {
		if spec, ok := specs[attribute]; ok {
			return spec
		}

		for attr, spec := range specs {
			if strings.EqualFold(attr, attribute) {
				return spec
			}
		}
	}

	if pair, ok := pairs[name]; ok && strings.EqualFold(pair.Public, attribute) {
		return pairFieldSpec
	}

	return DefaultFieldSpec
}

// Fields returns a copy of the field table of module.
func Fields(module string) map[string]FieldSpec {
	specs, ok := fieldSpecs[key(module)]
	if !ok {
		return map[string]FieldSpec{}
	}

	out, err := copystructure.Copy(specs)
	if err != nil {
		panic(err)
	}

	return out.(map[string]FieldSpec)
}
