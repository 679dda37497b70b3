package dedup

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborview/shipdocs/constants"
	"github.com/harborview/shipdocs/internal/llm"
)

type fakeStore struct {
	record     map[string]any
	err        error
	collection string
	filter     map[string]any
}

func (f *fakeStore) FindOne(_ context.Context, collection string, filter map[string]any) (map[string]any, error) {
	f.collection = collection
	f.filter = filter
	return f.record, f.err
}

func TestDetectNameAndNumberMatch(t *testing.T) {
	store := &fakeStore{record: map[string]any{
		"_id":           "65fe01",
		"document_name": "ISM Certificate",
		"document_no":   "A123",
	}}
	d := NewDetector(store, nil)

	fields := llm.FieldMap{"cert_name": "ISM Certificate", "cert_no": "A123"}
	v, err := d.Detect(context.Background(), "ship-1", fields, constants.Certificate)
	require.NoError(t, err)

	assert.True(t, v.IsDuplicate)
	assert.Equal(t, "65fe01", v.ExistingID)
	assert.Equal(t, 1.0, v.Similarity)
	assert.Equal(t, "certificates", store.collection)
	assert.Equal(t, map[string]any{"ship_id": "ship-1", "document_name": "ISM Certificate"}, store.filter)
}

func TestDetectNameOnlyMatch(t *testing.T) {
	store := &fakeStore{record: map[string]any{
		"_id":           "65fe02",
		"document_name": "ISM Certificate",
	}}
	d := NewDetector(store, nil)

	fields := llm.FieldMap{"cert_name": "ISM Certificate", "cert_no": "A123"}
	v, err := d.Detect(context.Background(), "ship-1", fields, constants.Certificate)
	require.NoError(t, err)

	assert.True(t, v.IsDuplicate)
	assert.Equal(t, 0.8, v.Similarity)
}

func TestDetectDifferentNumbersIsRenewal(t *testing.T) {
	store := &fakeStore{record: map[string]any{
		"_id":           "65fe03",
		"document_name": "ISM Certificate",
		"document_no":   "B999",
	}}
	d := NewDetector(store, nil)

	fields := llm.FieldMap{"cert_name": "ISM Certificate", "cert_no": "A123"}
	v, err := d.Detect(context.Background(), "ship-1", fields, constants.Certificate)
	require.NoError(t, err)

	assert.False(t, v.IsDuplicate)
}

func TestDetectNoExistingRecord(t *testing.T) {
	d := NewDetector(&fakeStore{}, nil)

	fields := llm.FieldMap{"cert_name": "ISM Certificate"}
	v, err := d.Detect(context.Background(), "ship-1", fields, constants.Certificate)
	require.NoError(t, err)
	assert.False(t, v.IsDuplicate)
}

func TestDetectNothingToMatchOnSkipsQuery(t *testing.T) {
	store := &fakeStore{err: errors.New("must not be called")}
	d := NewDetector(store, nil)

	v, err := d.Detect(context.Background(), "ship-1", llm.FieldMap{}, constants.Certificate)
	require.NoError(t, err)
	assert.False(t, v.IsDuplicate)
	assert.Empty(t, store.collection, "store queried despite empty document name")
}

func TestDetectStoreErrorPropagates(t *testing.T) {
	d := NewDetector(&fakeStore{err: errors.New("connection reset")}, nil)

	fields := llm.FieldMap{"cert_name": "ISM Certificate"}
	_, err := d.Detect(context.Background(), "ship-1", fields, constants.Certificate)
	assert.Error(t, err)
}

func TestDetectSurveyReportCollection(t *testing.T) {
	store := &fakeStore{}
	d := NewDetector(store, nil)

	fields := llm.FieldMap{"survey_report_name": "Annual Survey Report"}
	_, err := d.Detect(context.Background(), "ship-1", fields, constants.SurveyReport)
	require.NoError(t, err)
	assert.Equal(t, "survey_reports", store.collection)
}
