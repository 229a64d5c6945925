package spatial

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/geoenrich/internal/crs"
)

func mustCRS(t *testing.T, code int) crs.Projection {
	t.Helper()
	p, err := crs.Lookup(code)
	require.NoError(t, err)
	return p
}

func square(minX, minY, maxX, maxY float64) *geom.Polygon {
	return geom.NewPolygonFlat(geom.XY, []float64{
		minX, minY, maxX, minY, maxX, maxY, minX, maxY, minX, minY,
	}, []int{10})
}

func pointLayer(t *testing.T, name string, code int, coords ...[2]float64) *Layer {
	t.Helper()
	feats := make([]Feature, len(coords))
	for i, c := range coords {
		feats[i] = Feature{Geom: geom.NewPointFlat(geom.XY, []float64{c[0], c[1]})}
	}
	return NewLayer(name, mustCRS(t, code), feats)
}

func TestLocatePolygon(t *testing.T) {
	// 10x10 square with a 2x2 hole in the middle.
	poly := geom.NewPolygonFlat(geom.XY, []float64{
		0, 0, 10, 0, 10, 10, 0, 10, 0, 0,
		4, 4, 4, 6, 6, 6, 6, 4, 4, 4,
	}, []int{10, 20})

	tests := []struct {
		name string
		x, y float64
		want Location
	}{
		{"interior", 1, 1, Interior},
		{"on shell edge", 0, 5, Boundary},
		{"on shell vertex", 10, 10, Boundary},
		{"outside", 11, 5, Exterior},
		{"inside hole", 5, 5, Exterior},
		{"on hole edge", 4, 5, Boundary},
		{"between hole and shell", 8, 8, Interior},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, locatePolygon(tt.x, tt.y, poly))
		})
	}
}

func TestLocateMultiPolygon(t *testing.T) {
	mp := geom.NewMultiPolygonFlat(geom.XY, []float64{
		0, 0, 1, 0, 1, 1, 0, 1, 0, 0,
		5, 5, 6, 5, 6, 6, 5, 6, 5, 5,
	}, [][]int{{10}, {20}})

	assert.Equal(t, Interior, locateMultiPolygon(5.5, 5.5, mp))
	assert.Equal(t, Boundary, locateMultiPolygon(1, 0.5, mp))
	assert.Equal(t, Exterior, locateMultiPolygon(3, 3, mp))
}

func zipLayer(t *testing.T) *Layer {
	t.Helper()
	return NewLayer("zipcodes", mustCRS(t, 3857), []Feature{
		{Geom: square(0, 0, 100, 100), Attrs: map[string]string{"ZIP": "95814"}},
		{Geom: square(100, 0, 200, 100), Attrs: map[string]string{"ZIP": "95816"}},
	})
}

func TestJoinWithin_SinglePolygon(t *testing.T) {
	points := pointLayer(t, "sales", 3857, [2]float64{50, 50}, [2]float64{150, 20})
	res, err := JoinWithin(points, zipLayer(t))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, res.Matches)
	assert.Empty(t, res.Ambiguities)
	assert.Equal(t, 2, res.Matched())
}

func TestJoinWithin_OutsideAllPolygons(t *testing.T) {
	points := pointLayer(t, "sales", 3857, [2]float64{-10, 50}, [2]float64{500, 500})
	res, err := JoinWithin(points, zipLayer(t))
	require.NoError(t, err)
	assert.Equal(t, []int{NoMatch, NoMatch}, res.Matches)
	assert.Equal(t, 0, res.Matched())
}

func TestJoinWithin_SharedBoundaryIsOutside(t *testing.T) {
	// x=100 is the border between the two zip polygons.
	points := pointLayer(t, "sales", 3857, [2]float64{100, 50})
	res, err := JoinWithin(points, zipLayer(t))
	require.NoError(t, err)
	assert.Equal(t, []int{NoMatch}, res.Matches)
	assert.Empty(t, res.Ambiguities)
}

func TestJoinWithin_OverlapTakesFirstAndFlags(t *testing.T) {
	cities := NewLayer("cities", mustCRS(t, 3857), []Feature{
		{Geom: square(0, 0, 100, 100), Attrs: map[string]string{"NAME": "A"}},
		{Geom: square(50, 50, 150, 150), Attrs: map[string]string{"NAME": "B"}},
	})
	points := pointLayer(t, "sales", 3857, [2]float64{75, 75}, [2]float64{25, 25})

	res, err := JoinWithin(points, cities)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0}, res.Matches)
	require.Len(t, res.Ambiguities, 1)
	assert.Equal(t, 0, res.Ambiguities[0].Point)
	assert.Equal(t, []int{0, 1}, res.Ambiguities[0].Matches)
}

func TestJoinWithin_CRSMismatch(t *testing.T) {
	points := pointLayer(t, "sales", 4326, [2]float64{-121.5, 38.5})
	_, err := JoinWithin(points, zipLayer(t))
	require.Error(t, err)

	var mismatch *CRSMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, 4326, mismatch.Want)
	assert.Equal(t, 3857, mismatch.Got)
	assert.Equal(t, "zipcodes", mismatch.Layer)
}

func TestBuffer(t *testing.T) {
	poly, err := Buffer(geom.Coord{10, 20}, 5, 4)
	require.NoError(t, err)
	shell := poly.LinearRing(0)
	assert.Equal(t, 17, shell.NumCoords())
	for i := 0; i < shell.NumCoords(); i++ {
		c := shell.Coord(i)
		assert.InDelta(t, 5.0, math.Hypot(c.X()-10, c.Y()-20), 1e-9)
	}
	assert.Equal(t, Interior, locatePolygon(10, 20, poly))

	_, err = Buffer(geom.Coord{0, 0}, 0, 4)
	assert.Error(t, err)
}

func TestRegion_Difference(t *testing.T) {
	outer := Union(square(0, 0, 10, 10))
	inner := Union(square(2, 2, 4, 4), square(6, 6, 8, 8))
	ring := outer.Difference(inner)

	assert.Equal(t, Interior, ring.Locate(geom.Coord{1, 1}))
	assert.Equal(t, Exterior, ring.Locate(geom.Coord{3, 3}))
	assert.Equal(t, Exterior, ring.Locate(geom.Coord{7, 7}))
	assert.Equal(t, Boundary, ring.Locate(geom.Coord{2, 3}))
	assert.Equal(t, Exterior, ring.Locate(geom.Coord{20, 20}))

	// Difference does not touch the original region.
	assert.Equal(t, Interior, outer.Locate(geom.Coord{3, 3}))
	assert.Empty(t, outer.Subtracted())
}

func TestRegion_UnionOverlapIsInterior(t *testing.T) {
	r := Union(square(0, 0, 10, 10), square(5, 0, 15, 10))
	// x=10 is the edge of the first square but inside the second.
	assert.Equal(t, Interior, r.Locate(geom.Coord{10, 5}))
	assert.Equal(t, Boundary, r.Locate(geom.Coord{15, 5}))
}

func defaultBands(t *testing.T, p crs.Projection) []Band {
	t.Helper()
	var bands []Band
	for _, b := range []struct {
		name  string
		miles float64
	}{{"half_mile", 0.5}, {"one_mile", 1}, {"five_mile", 5}} {
		r, err := crs.MilesToUnits(p, b.miles)
		require.NoError(t, err)
		bands = append(bands, Band{Name: b.name, Radius: r})
	}
	return bands
}

func TestBuildRings_ConcreteScenario(t *testing.T) {
	plants := pointLayer(t, "plants", 3857, [2]float64{0, 0})
	rings, err := BuildRings(plants, defaultBands(t, plants.CRS), DefaultQuadSegments)
	require.NoError(t, err)
	require.Len(t, rings.Rings, 3)
	assert.InDelta(t, 804.672, rings.Rings[0].Radius, 1e-9)
	assert.InDelta(t, 1609.344, rings.Rings[1].Radius, 1e-9)

	sale := pointLayer(t, "sales", 3857, [2]float64{1000, 0})
	res, err := JoinWithin(sale, rings)
	require.NoError(t, err)
	// 804.672 < 1000 < 1609.344: only the one-mile band.
	assert.Equal(t, []int{1}, res.Matches)
	assert.Empty(t, res.Ambiguities)
}

func TestBuildRings_Disjoint(t *testing.T) {
	plants := pointLayer(t, "plants", 3857, [2]float64{0, 0}, [2]float64{1200, 300}, [2]float64{-4000, 2500})
	rings, err := BuildRings(plants, defaultBands(t, plants.CRS), 8)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		c := geom.Coord{rng.Float64()*20000 - 10000, rng.Float64()*20000 - 10000}
		inside := 0
		for _, r := range rings.Rings {
			if r.Region.Locate(c) == Interior {
				inside++
			}
		}
		assert.LessOrEqual(t, inside, 1, "point %v in more than one ring", c)
	}

	// A point next to a plant is only in the innermost ring.
	c := geom.Coord{10, 10}
	assert.Equal(t, Interior, rings.Rings[0].Region.Locate(c))
	assert.Equal(t, Exterior, rings.Rings[1].Region.Locate(c))
	assert.Equal(t, Exterior, rings.Rings[2].Region.Locate(c))
}

func TestBuildRings_Validation(t *testing.T) {
	geo := pointLayer(t, "plants", 4326, [2]float64{-121, 38})
	_, err := BuildRings(geo, []Band{{Name: "a", Radius: 1}}, 8)
	var degenerate *DegenerateDistanceUnitError
	require.True(t, errors.As(err, &degenerate))
	assert.Equal(t, 4326, degenerate.CRS)

	plants := pointLayer(t, "plants", 3857, [2]float64{0, 0})
	_, err = BuildRings(plants, []Band{{Name: "a", Radius: 5}, {Name: "b", Radius: 5}}, 8)
	assert.Error(t, err)

	empty := NewLayer("plants", mustCRS(t, 3857), nil)
	_, err = BuildRings(empty, []Band{{Name: "a", Radius: 5}}, 8)
	assert.Error(t, err)
}

func TestNearestDistances_Scenario(t *testing.T) {
	markets := pointLayer(t, "markets", 3857, [2]float64{0, 0})
	sales := pointLayer(t, "sales", 3857, [2]float64{1000, 0}, [2]float64{0, 0})

	got, err := NearestDistances(sales, markets)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, got[0].Distance)
	assert.Equal(t, 0, got[0].Index)
	assert.Equal(t, 0.0, got[1].Distance)
}

func TestNearestDistances_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	var controls, points [][2]float64
	for i := 0; i < 300; i++ {
		controls = append(controls, [2]float64{rng.Float64() * 50000, rng.Float64() * 50000})
	}
	for i := 0; i < 500; i++ {
		points = append(points, [2]float64{rng.Float64() * 50000, rng.Float64() * 50000})
	}
	ctrl := pointLayer(t, "markets", 3857, controls...)
	pts := pointLayer(t, "sales", 3857, points...)

	got, err := NearestDistances(pts, ctrl)
	require.NoError(t, err)
	for i, p := range points {
		want := math.Inf(1)
		for _, c := range controls {
			want = math.Min(want, math.Hypot(p[0]-c[0], p[1]-c[1]))
		}
		assert.GreaterOrEqual(t, got[i].Distance, 0.0)
		assert.InDelta(t, want, got[i].Distance, 1e-5)
	}
}

func TestNearestDistances_Errors(t *testing.T) {
	geoMarkets := pointLayer(t, "markets", 4326, [2]float64{-121, 38})
	geoSales := pointLayer(t, "sales", 4326, [2]float64{-121.1, 38.1})
	_, err := NearestDistances(geoSales, geoMarkets)
	var degenerate *DegenerateDistanceUnitError
	assert.True(t, errors.As(err, &degenerate))

	markets := pointLayer(t, "markets", 3857, [2]float64{0, 0})
	_, err = NearestDistances(geoSales, markets)
	var mismatch *CRSMismatchError
	assert.True(t, errors.As(err, &mismatch))

	empty := NewLayer("markets", mustCRS(t, 3857), nil)
	sales := pointLayer(t, "sales", 3857, [2]float64{1, 1})
	_, err = NearestDistances(sales, empty)
	assert.Error(t, err)
}

func TestReproject_RoundTripAndImmutability(t *testing.T) {
	src := NewLayer("zips", mustCRS(t, 4326), []Feature{
		{Geom: geom.NewPolygonFlat(geom.XY, []float64{
			-97.4, 32.7, -97.3, 32.7, -97.3, 32.8, -97.4, 32.8, -97.4, 32.7,
		}, []int{10}), Attrs: map[string]string{"ZIP": "76102"}},
		{Geom: geom.NewPointFlat(geom.XY, []float64{-97.33, 32.75})},
	})
	before := append([]float64(nil), src.Features[0].Geom.FlatCoords()...)

	projected, err := src.Reproject(mustCRS(t, 2276))
	require.NoError(t, err)
	assert.Equal(t, 2276, projected.CRS.Code())
	assert.Equal(t, 2276, projected.Features[0].Geom.SRID())
	assert.Equal(t, before, src.Features[0].Geom.FlatCoords())
	assert.Equal(t, "76102", projected.Features[0].Attrs["ZIP"])

	back, err := projected.Reproject(src.CRS)
	require.NoError(t, err)
	for i, f := range back.Features {
		want := src.Features[i].Geom.FlatCoords()
		gotFlat := f.Geom.FlatCoords()
		require.Len(t, gotFlat, len(want))
		for j := range want {
			assert.InDelta(t, want[j], gotFlat[j], 1e-8)
		}
	}
}

func TestNormalize(t *testing.T) {
	target := mustCRS(t, 32614)
	same := pointLayer(t, "markets", 32614, [2]float64{650000, 3625000})
	other := pointLayer(t, "plants", 4326, [2]float64{-97.33, 32.75})

	out, err := Normalize(target, same, other)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Same(t, same, out[0])
	assert.NotSame(t, other, out[1])
	assert.Equal(t, 32614, out[1].CRS.Code())
	assert.Equal(t, 4326, other.CRS.Code())
	assert.NoError(t, RequireSameCRS("test", out[0], out[1]))
}

func TestFeatureAttr(t *testing.T) {
	f := Feature{Attrs: map[string]string{"A": "x", "B": ""}}
	v, ok := f.Attr("A")
	assert.True(t, ok)
	assert.Equal(t, "x", v)
	_, ok = f.Attr("B")
	assert.False(t, ok)
	_, ok = f.Attr("C")
	assert.False(t, ok)
}

func TestLocatePolygon_UnclosedRing(t *testing.T) {
	open := geom.NewPolygonFlat(geom.XY, []float64{0, 0, 10, 0, 10, 10, 0, 10}, []int{8})
	assert.Equal(t, Interior, locatePolygon(5, 5, open))
	assert.Equal(t, Boundary, locatePolygon(0, 5, open))
	assert.Equal(t, Exterior, locatePolygon(-1, 5, open))
}

// outlineArea is shell area minus hole area, whatever the ring orientation.
func outlineArea(mp *geom.MultiPolygon) float64 {
	var a float64
	for i := 0; i < mp.NumPolygons(); i++ {
		p := mp.Polygon(i)
		for j := 0; j < p.NumLinearRings(); j++ {
			r := math.Abs(p.LinearRing(j).Area())
			if j == 0 {
				a += r
			} else {
				a -= r
			}
		}
	}
	return a
}

func TestRegion_DissolveMergesOverlap(t *testing.T) {
	r := Union(square(0, 0, 10, 10), square(5, 0, 15, 10))
	mp, err := r.Dissolve()
	require.NoError(t, err)
	require.Equal(t, 1, mp.NumPolygons())
	assert.Equal(t, 1, mp.Polygon(0).NumLinearRings())
	assert.InDelta(t, 150.0, outlineArea(mp), 1e-9)
}

func TestRegion_DissolveCutsSubtracted(t *testing.T) {
	outer := Union(square(0, 0, 10, 10), square(20, 0, 30, 10))
	ring := outer.Difference(Union(square(2, 2, 4, 4), square(3, 3, 5, 5)))
	mp, err := ring.Dissolve()
	require.NoError(t, err)
	require.Equal(t, 2, mp.NumPolygons())
	assert.InDelta(t, 200.0-7.0, outlineArea(mp), 1e-9)

	for _, c := range []geom.Coord{{1, 1}, {3.5, 3.5}, {4.5, 2.5}, {25, 5}, {15, 5}} {
		want := ring.Locate(c) == Interior
		assert.Equal(t, want, Within(c, ShapeOf(mp)), "%v", c)
	}
}
