package tiger

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Scheme is the URL scheme of TIGER/Line manifest locations.
const Scheme = "tiger"

// minYear is the first vintage published under the TIGER<year> layout.
const minYear = 2008

// IsLocation reports whether location uses the tiger scheme.
func IsLocation(location string) bool {
	u, err := url.Parse(location)
	return err == nil && u.Scheme == Scheme
}

// ResolveURL turns tiger://<year>/<PRODUCT>[/<state>] into the Census
// download URL. State may be an abbreviation or a FIPS code and is required
// for per-state products.
func ResolveURL(location string) (string, error) {
	u, err := url.Parse(location)
	if err != nil || u.Scheme != Scheme {
		return "", eris.Errorf("tiger: not a tiger location: %s", location)
	}

	year, err := strconv.Atoi(u.Host)
	if err != nil || year < minYear {
		return "", eris.Errorf("tiger: bad year %q in %s", u.Host, location)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	product, ok := ProductByName(parts[0])
	if !ok || parts[0] == "" {
		return "", eris.Errorf("tiger: unknown product %q in %s", parts[0], location)
	}

	switch {
	case product.National && len(parts) == 1:
		return DownloadURL(product, year, ""), nil
	case product.National:
		return "", eris.Errorf("tiger: %s is national and takes no state: %s", product.Name, location)
	case len(parts) != 2:
		return "", eris.Errorf("tiger: %s needs a state: %s", product.Name, location)
	}

	fips, ok := StateFIPS(parts[1])
	if !ok {
		return "", eris.Errorf("tiger: unknown state %q in %s", parts[1], location)
	}
	return DownloadURL(product, year, fips), nil
}
