package creator

import (
	"fmt"
	"io"

	"github.com/nexdatas/nxstools/internal/inventory"
	"github.com/spf13/afero"
)

// DefaultOnlineFile is the inventory read when no file is given.
const DefaultOnlineFile = "/online_dir/online.xml"

// Compare reads two inventory files and compares their devices.
func Compare(fs afero.Fs, first, second string, noLower bool) (*inventory.Comparison, error) {
	if second == "" {
		second = DefaultOnlineFile
	}

	a, err := inventory.ParseFile(fs, first)
	if err != nil {
		return nil, err
	}

	b, err := inventory.ParseFile(fs, second)
	if err != nil {
		return nil, err
	}

	return inventory.Compare(a, b, !noLower), nil
}

// Report writes a comparison in a human readable form.
func Report(w io.Writer, c *inventory.Comparison, first, second string) {
	if c.Equal() {
		fmt.Fprintf(w, "%s and %s describe the same devices\n", first, second)
		return
	}

	if len(c.OnlyFirst) > 0 {
		fmt.Fprintf(w, "ONLY IN %s:\n", first)

		for _, n := range c.OnlyFirst {
			fmt.Fprintf(w, "  %s\n", n)
		}
	}

	if len(c.OnlySecond) > 0 {
		fmt.Fprintf(w, "ONLY IN %s:\n", second)

		for _, n := range c.OnlySecond {
			fmt.Fprintf(w, "  %s\n", n)
		}
	}

	if len(c.Differences) > 0 {
		fmt.Fprintln(w, "DIFFERENCES:")

		for _, d := range c.Differences {
			fmt.Fprintf(w, "  %s.%s: '%s' != '%s'\n", d.Device, d.Field, d.First, d.Second)
		}
	}
}
