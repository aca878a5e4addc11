package templates

import (
	"testing"

	"github.com/nexdatas/nxstools/internal/catalog"
	"github.com/nexdatas/nxstools/internal/descriptor"
	"github.com/nexdatas/nxstools/internal/model"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubstitute(t *testing.T) {
	vars := map[string]string{
		"name":     "myeiger",
		"host":     "haso000",
		"hostname": "haso000:10000",
	}

	tests := []struct {
		in   string
		want string
	}{
		{"$var.name", "myeiger"},
		{"$datasources.$var.name_nbimages", "$datasources.myeiger_nbimages"},
		{`hostname = "$var.hostname"`, `hostname = "haso000:10000"`},
		{`host = "$var.host"`, `host = "haso000"`},
		{"$var.entryname#'scan'$var.serialno", "$var.entryname#'scan'$var.serialno"},
		{"$var.filename and $var.name", "$var.filename and myeiger"},
		{"$var.", "$var."},
		{"no variables", "no variables"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, Substitute(tc.in, vars), tc.in)
	}

	assert.Equal(t, "$var.name", Substitute("$var.name", nil))
}

func TestSubstituteBoundaryAndEscaping(t *testing.T) {
	vars := map[string]string{
		"entry":      "OOPS",
		"sourcename": `R&D <ring> "A"`,
	}

	assert.Equal(t, "$var.entryname#'scan'", Substitute("$var.entryname#'scan'", vars))
	assert.Equal(t, "OOPS_1 OOPS", Substitute("$var.entry_1 $var.entry", vars))
	assert.Equal(t, "<field>R&amp;D &lt;ring&gt; &#34;A&#34;</field>", Substitute("<field>$var.sourcename</field>", vars))
}

func TestValuesDropsUndeclared(t *testing.T) {
	p, err := Default()
	require.NoError(t, err)

	slit, err := p.ComponentType("slit")
	require.NoError(t, err)

	values := slit.Values(map[string]string{"xgap": "s1_xgap", "entry": "OOPS"})
	assert.Equal(t, "s1_xgap", values["xgap"])
	assert.NotContains(t, values, "entry")
}

func TestDefaultPackageHasModuleBundles(t *testing.T) {
	p, err := Default()
	require.NoError(t, err)

	for _, module := range catalog.ComponentModules() {
		files, ok := catalog.TemplateFiles(module)
		if !ok {
			continue
		}

		got, err := p.Files(files)
		require.NoError(t, err, module)
		assert.Equal(t, files, got, module)

		for _, f := range files {
			text, err := p.Render(f, map[string]string{
				VarDeviceName: "det",
				VarDevice:     "p09/det/exp.01",
				VarHostname:   "haso000:10000",
				VarHost:       "haso000",
				VarPort:       "10000",
				VarEntryName:  "scan",
				VarInsName:    "instrument",
			})
			require.NoError(t, err, f)
			assert.NotContains(t, text, "$var.name", f)
			assert.NotContains(t, text, "$var.__", f)

			if IsDataSource(f) {
				ds, err := descriptor.ParseDataSource(text)
				require.NoError(t, err, f)
				assert.Contains(t, ds.Name, "det_", f)
			}
		}
	}
}

func TestComponentTypes(t *testing.T) {
	p, err := Default()
	require.NoError(t, err)

	assert.Equal(t, []string{"default", "sample", "slit", "source"}, p.ComponentTypes())

	slit, err := p.ComponentType("slit")
	require.NoError(t, err)
	assert.Equal(t, "slit", slit.Name)

	names := []string{}
	for _, v := range slit.SortedVariables() {
		names = append(names, v.Name)
	}

	assert.Equal(t, []string{"xgap", "xoffset", "ygap", "yoffset"}, names)

	values := slit.Values(map[string]string{"xgap": "slt1x"})
	assert.Equal(t, "slt1x", values["xgap"])
	assert.Equal(t, "", values["ygap"])

	_, err = p.ComponentType("toaster")
	assert.ErrorIs(t, err, model.ErrWrongParameter)
}

func TestFromDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/pkg/standard.yaml", []byte(`components:
  counter:
    description: one counter
    files:
      - "counter*.xml"
    variables:
      channel:
        doc: counter datasource
        default: exp_c01
      __hidden__:
        default: x
`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/pkg/counter.xml", []byte("<definition>$datasources.$var.channel</definition>"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/pkg/counter_ds.ds.xml", []byte("<definition/>"), 0o644))

	p, err := FromDir(fs, "/pkg")
	require.NoError(t, err)
	assert.Equal(t, []string{"counter"}, p.ComponentTypes())

	ct, err := p.ComponentType("counter")
	require.NoError(t, err)
	require.Len(t, ct.SortedVariables(), 1)
	assert.Equal(t, "exp_c01", ct.SortedVariables()[0].Default)

	files, err := p.Files(ct.Files)
	require.NoError(t, err)
	assert.Equal(t, []string{"counter.xml", "counter_ds.ds.xml"}, files)
	assert.True(t, IsDataSource(files[1]))

	text, err := p.Render("counter.xml", ct.Values(nil))
	require.NoError(t, err)
	assert.Equal(t, "<definition>$datasources.exp_c01</definition>", text)

	_, err = p.Files([]string{"missing.xml"})
	assert.ErrorIs(t, err, model.ErrWrongParameter)

	_, err = FromDir(fs, "/nowhere")
	assert.ErrorIs(t, err, model.ErrWrongParameter)

	require.NoError(t, afero.WriteFile(fs, "/bad/standard.yaml", []byte("components: [1, 2"), 0o644))
	_, err = FromDir(fs, "/bad")
	assert.ErrorIs(t, err, model.ErrParse)
}

func TestHidden(t *testing.T) {
	assert.True(t, Hidden(VarEntryName))
	assert.False(t, Hidden(VarDeviceName))
}
