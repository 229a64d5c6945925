package spatial

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geoenrich/internal/crs"
)

// Referenced is anything carrying a name and a CRS.
type Referenced interface {
	LayerName() string
	LayerCRS() crs.Projection
}

// RequireSameCRS fails with a *CRSMismatchError unless every set shares the
// CRS of the first one.
func RequireSameCRS(op string, sets ...Referenced) error {
	if len(sets) < 2 {
		return nil
	}
	want := sets[0].LayerCRS().Code()
	for _, s := range sets[1:] {
		if got := s.LayerCRS().Code(); got != want {
			return &CRSMismatchError{Op: op, Layer: s.LayerName(), Want: want, Got: got}
		}
	}
	return nil
}

// RequireProjected fails with a *DegenerateDistanceUnitError when s is in a
// geographic CRS.
func RequireProjected(op string, s Referenced) error {
	if s.LayerCRS().Geographic() {
		return &DegenerateDistanceUnitError{Op: op, CRS: s.LayerCRS().Code()}
	}
	return nil
}

// Normalize returns the layers in target CRS, in input order. Layers already
// in target are returned as-is; the others are reprojected into new values.
func Normalize(target crs.Projection, layers ...*Layer) ([]*Layer, error) {
	out := make([]*Layer, len(layers))
	for i, l := range layers {
		if l.CRS.Code() == target.Code() {
			out[i] = l
			continue
		}
		zap.L().Debug("spatial: reprojecting layer",
			zap.String("layer", l.Name),
			zap.Int("from", l.CRS.Code()),
			zap.Int("to", target.Code()),
			zap.Int("features", len(l.Features)),
		)
		r, err := l.Reproject(target)
		if err != nil {
			return nil, eris.Wrapf(err, "spatial: normalize %s", l.Name)
		}
		out[i] = r
	}
	return out, nil
}
