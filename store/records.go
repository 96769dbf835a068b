// Package store persists custom object records and maps the sequence and
// webset objects onto their typed models.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"time"

	"prospectflow/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrUnknownObject    = errors.New("unknown object")
	ErrRecordNotFound   = errors.New("record not found")
	ErrUnsupportedMatch = errors.New("unsupported match value")
)

// Direction is a sort direction with explicit null placement.
type Direction string

const (
	AscNullsFirst  Direction = "AscNullsFirst"
	AscNullsLast   Direction = "AscNullsLast"
	DescNullsFirst Direction = "DescNullsFirst"
	DescNullsLast  Direction = "DescNullsLast"
)

func (d Direction) Valid() bool {
	switch d {
	case AscNullsFirst, AscNullsLast, DescNullsFirst, DescNullsLast:
		return true
	}
	return false
}

func (d Direction) descending() bool { return d == DescNullsFirst || d == DescNullsLast }
func (d Direction) nullsFirst() bool { return d == AscNullsFirst || d == DescNullsFirst }

// OrderBy sorts by one field. Fields are compared in the order given.
type OrderBy struct {
	Field     string
	Direction Direction
}

// Newest orders by creation time, most recent first.
var Newest = OrderBy{Field: models.FieldCreatedAt, Direction: DescNullsLast}

// RecordStore reads and writes records of custom objects.
type RecordStore interface {
	FindMany(ctx context.Context, object string, orderBy ...OrderBy) ([]models.Record, error)
	FindBy(ctx context.Context, object string, match map[string]any, orderBy ...OrderBy) ([]models.Record, error)
	FindOne(ctx context.Context, object, id string) (models.Record, error)
	CreateOne(ctx context.Context, object string, fields map[string]any) (models.Record, error)
	UpdateOne(ctx context.Context, object, id string, fields map[string]any) (models.Record, error)
	DeleteMany(ctx context.Context, object string, match map[string]any) (int, error)
	Transaction(ctx context.Context, fn func(tx RecordStore) error) error
}

// GormRecordStore keeps every record in one table, keyed by object name.
type GormRecordStore struct {
	DB *gorm.DB
}

func NewGormRecordStore(db *gorm.DB) *GormRecordStore {
	return &GormRecordStore{DB: db}
}

func (s *GormRecordStore) Transaction(ctx context.Context, fn func(tx RecordStore) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormRecordStore{DB: tx})
	})
}

func (s *GormRecordStore) FindMany(ctx context.Context, object string, orderBy ...OrderBy) ([]models.Record, error) {
	return s.FindBy(ctx, object, nil, orderBy...)
}

// FindBy returns records whose fields equal every entry of match. Matching
// runs in SQL; match values must be strings, numbers or booleans.
func (s *GormRecordStore) FindBy(ctx context.Context, object string, match map[string]any, orderBy ...OrderBy) ([]models.Record, error) {
	if err := s.requireObject(ctx, object); err != nil {
		return nil, err
	}

	q, err := s.scope(ctx, object, match)
	if err != nil {
		return nil, err
	}
	inSQL := columnOrder(orderBy)
	for _, o := range inSQL {
		q = q.Order(o)
	}
	q = q.Order("created_at ASC")

	var rows []models.Record
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find %s: %w", object, err)
	}
	if inSQL == nil {
		sortRecords(rows, orderBy)
	}
	return rows, nil
}

// scope selects the records of object whose data fields equal every entry
// of match.
func (s *GormRecordStore) scope(ctx context.Context, object string, match map[string]any) (*gorm.DB, error) {
	q := s.DB.WithContext(ctx).Model(&models.Record{}).Where("object_name = ?", object)
	if len(match) == 0 {
		return q, nil
	}

	want, err := normalize(match)
	if err != nil {
		return nil, err
	}
	for _, key := range slices.Sorted(maps.Keys(want)) {
		value := want[key]
		if key == models.FieldID {
			q = q.Where("id = ?", value)
			continue
		}
		switch value.(type) {
		case string, float64, bool:
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedMatch, key)
		}
		q = q.Where(datatypes.JSONQuery("data").Equals(value, key))
	}
	return q, nil
}

// columnOrder translates orderBy into SQL when every field is a timestamp
// column. It returns nil when any field lives in the data column.
func columnOrder(orderBy []OrderBy) []clause.OrderByColumn {
	if len(orderBy) == 0 {
		return nil
	}
	out := make([]clause.OrderByColumn, 0, len(orderBy))
	for _, o := range orderBy {
		var column string
		switch o.Field {
		case models.FieldCreatedAt:
			column = "created_at"
		case models.FieldUpdatedAt:
			column = "updated_at"
		default:
			return nil
		}
		out = append(out, clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: o.Direction.descending()})
	}
	return out
}

func (s *GormRecordStore) FindOne(ctx context.Context, object, id string) (models.Record, error) {
	if err := s.requireObject(ctx, object); err != nil {
		return models.Record{}, err
	}

	var row models.Record
	err := s.DB.WithContext(ctx).Where("object_name = ? AND id = ?", object, id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Record{}, fmt.Errorf("%s %s: %w", object, id, ErrRecordNotFound)
	}
	if err != nil {
		return models.Record{}, fmt.Errorf("find %s %s: %w", object, id, err)
	}
	return row, nil
}

// CreateOne stores a new record. An "id" string in fields is used as the
// record id, otherwise one is generated.
func (s *GormRecordStore) CreateOne(ctx context.Context, object string, fields map[string]any) (models.Record, error) {
	if err := s.requireObject(ctx, object); err != nil {
		return models.Record{}, err
	}

	id, _ := fields[models.FieldID].(string)
	if id == "" {
		id = uuid.NewString()
	}
	data, err := normalize(stripReserved(fields))
	if err != nil {
		return models.Record{}, err
	}

	row := models.Record{ID: id, ObjectName: object, Data: data}
	if err := s.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return models.Record{}, fmt.Errorf("create %s: %w", object, err)
	}
	return row, nil
}

// UpdateOne merges fields into the record. Keys not present in fields keep
// their stored value.
func (s *GormRecordStore) UpdateOne(ctx context.Context, object, id string, fields map[string]any) (models.Record, error) {
	row, err := s.FindOne(ctx, object, id)
	if err != nil {
		return models.Record{}, err
	}

	patch, err := normalize(stripReserved(fields))
	if err != nil {
		return models.Record{}, err
	}
	if row.Data == nil {
		row.Data = make(map[string]any, len(patch))
	}
	for k, v := range patch {
		row.Data[k] = v
	}
	row.UpdatedAt = time.Now()

	if err := s.DB.WithContext(ctx).Model(&row).Select("Data", "UpdatedAt").Updates(&row).Error; err != nil {
		return models.Record{}, fmt.Errorf("update %s %s: %w", object, id, err)
	}
	return row, nil
}

// DeleteMany removes records matching every entry of match and returns how
// many were removed. An empty match removes nothing.
func (s *GormRecordStore) DeleteMany(ctx context.Context, object string, match map[string]any) (int, error) {
	if len(match) == 0 {
		return 0, nil
	}
	if err := s.requireObject(ctx, object); err != nil {
		return 0, err
	}

	q, err := s.scope(ctx, object, match)
	if err != nil {
		return 0, err
	}
	result := q.Delete(&models.Record{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete %s: %w", object, result.Error)
	}
	return int(result.RowsAffected), nil
}

func (s *GormRecordStore) requireObject(ctx context.Context, object string) error {
	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.ObjectMetadata{}).
		Where("name_singular = ? AND is_active = ?", object, true).
		Count(&count).Error; err != nil {
		return fmt.Errorf("lookup object %s: %w", object, err)
	}
	if count == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownObject, object)
	}
	return nil
}

func stripReserved(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		switch k {
		case models.FieldID, models.FieldCreatedAt, models.FieldUpdatedAt:
			continue
		}
		out[k] = v
	}
	return out
}

// normalize brings values into their decoded JSON form, the shape they
// have once stored.
func normalize(fields map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	out := make(map[string]any, len(fields))
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	return out, nil
}

func sortRecords(rows []models.Record, orderBy []OrderBy) {
	if len(orderBy) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Fields(), rows[j].Fields()
		for _, o := range orderBy {
			c := compareValues(a[o.Field], b[o.Field], o.Direction)
			if c != 0 {
				return c < 0
			}
		}
		return false
	})
}

// compareValues orders a before b (negative), after b (positive) or
// neither (zero) under d.
func compareValues(a, b any, d Direction) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil && d.nullsFirst(), b == nil && !d.nullsFirst():
			return -1
		default:
			return 1
		}
	}

	c := compareNonNil(a, b)
	if d.descending() {
		return -c
	}
	return c
}

func compareNonNil(a, b any) int {
	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	case float64:
		if bv, ok := b.(float64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			}
			return 1
		}
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(strings.ToLower(av), strings.ToLower(bv))
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
