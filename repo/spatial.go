package repo

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/meridian-gis/entitycore/errors"
	"github.com/meridian-gis/entitycore/model"
)

// Point is a coordinate pair in the requested spatial reference.
type Point struct {
	X, Y float64
}

// Extent is an axis-aligned bounding box.
type Extent struct {
	Min, Max Point
}

// Driver output is matched strictly; anything outside these shapes is a
// geometry processing error, not a silent zero.
var (
	pointPattern = regexp.MustCompile(`^POINT\((-?\d+(?:\.\d+)?) (-?\d+(?:\.\d+)?)\)$`)
	boxPattern   = regexp.MustCompile(`^BOX\((-?\d+(?:\.\d+)?) (-?\d+(?:\.\d+)?),(-?\d+(?:\.\d+)?) (-?\d+(?:\.\d+)?)\)$`)
)

// EntityCentroid computes the centroid of one object's geometry column,
// transformed into the given spatial reference.
func (r *Repository) EntityCentroid(ctx context.Context, t *model.EntityType, fieldCode string, id, srid int) (Point, error) {
	field, err := geometryField(t, fieldCode)
	if err != nil {
		return Point{}, err
	}
	code := strings.ToLower(field.CodeName())

	sqlText := fmt.Sprintf(
		"SELECT ST_AsText(ST_Centroid(ST_Transform(o.%s, %d))) FROM %s o WHERE o.id = $1",
		code, srid, model.EntityTable(t.CodeName()),
	)
	var text sql.NullString
	if err := r.q.QueryRowContext(ctx, sqlText, id).Scan(&text); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Point{}, errors.NotFoundf("%s object %d not found", t.CodeName(), id)
		}
		return Point{}, errors.Wrapf(err, "failed to compute centroid of %s object %d", t.CodeName(), id)
	}
	if !text.Valid {
		return Point{}, errors.Geometryf("object %d has no geometry in column %s", id, code)
	}
	return parseCentroid(text.String)
}

// EntityExtent computes the bounding box of one object's geometry,
// transformed into the given spatial reference. A NULL extent (no
// geometry stored) returns nil without error.
func (r *Repository) EntityExtent(ctx context.Context, t *model.EntityType, fieldCode string, id, srid int) (*Extent, error) {
	field, err := geometryField(t, fieldCode)
	if err != nil {
		return nil, err
	}
	code := strings.ToLower(field.CodeName())

	sqlText := fmt.Sprintf(
		"SELECT ST_Extent(ST_Transform(o.%s, %d))::TEXT FROM %s o WHERE o.id = $1",
		code, srid, model.EntityTable(t.CodeName()),
	)
	var text sql.NullString
	if err := r.q.QueryRowContext(ctx, sqlText, id).Scan(&text); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFoundf("%s object %d not found", t.CodeName(), id)
		}
		return nil, errors.Wrapf(err, "failed to compute extent of %s object %d", t.CodeName(), id)
	}
	if !text.Valid {
		return nil, nil
	}
	ext, err := parseExtent(text.String)
	if err != nil {
		return nil, err
	}
	return &ext, nil
}

func geometryField(t *model.EntityType, fieldCode string) (*model.GeometryField, error) {
	field, ok := t.Field(fieldCode)
	if !ok {
		return nil, errors.NotFoundf("field %q not found on type %s", fieldCode, t.CodeName())
	}
	gf, ok := field.(*model.GeometryField)
	if !ok {
		return nil, errors.Unprocessablef("field %q of type %s is not a geometry", fieldCode, t.CodeName())
	}
	return gf, nil
}

func parseCentroid(text string) (Point, error) {
	m := pointPattern.FindStringSubmatch(text)
	if m == nil {
		return Point{}, errors.Geometryf("centroid output %q does not match POINT(x y)", text)
	}
	x, _ := strconv.ParseFloat(m[1], 64)
	y, _ := strconv.ParseFloat(m[2], 64)
	return Point{X: x, Y: y}, nil
}

func parseExtent(text string) (Extent, error) {
	m := boxPattern.FindStringSubmatch(text)
	if m == nil {
		return Extent{}, errors.Geometryf("extent output %q does not match BOX(x1 y1,x2 y2)", text)
	}
	x1, _ := strconv.ParseFloat(m[1], 64)
	y1, _ := strconv.ParseFloat(m[2], 64)
	x2, _ := strconv.ParseFloat(m[3], 64)
	y2, _ := strconv.ParseFloat(m[4], 64)
	return Extent{Min: Point{X: x1, Y: y1}, Max: Point{X: x2, Y: y2}}, nil
}
