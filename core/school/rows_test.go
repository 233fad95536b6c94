package school

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
)

func TestCell_UnmarshalJSON(t *testing.T) {
	var row StudentRow
	err := json.Unmarshal([]byte(`{
		"nama_lengkap": "  Dewi ",
		"nisn": 123456,
		"tahun_masuk": "2021.0",
		"hp_orang_tua": null,
		"status": true
	}`), &row)
	require.NoError(t, err)
	assert.Equal(t, "Dewi", row.FullName.String())
	assert.Equal(t, "123456", row.NISN.String())
	assert.Equal(t, "2021.0", row.EnrollmentYear.String())
	assert.Equal(t, "", row.ParentPhone.String())
	assert.Equal(t, "true", row.Status.String())
}

func TestStudentRow_newStudent(t *testing.T) {
	tests := []struct {
		name     string
		row      StudentRow
		wantOK   bool
		wantYear *int
	}{
		{name: "unnamed", row: StudentRow{FullName: "   ", NISN: "1"}},
		{name: "decimal year", row: StudentRow{FullName: "A", EnrollmentYear: "2021.0"}, wantOK: true, wantYear: intPtr(2021)},
		{name: "garbage year", row: StudentRow{FullName: "A", EnrollmentYear: "dua ribu"}, wantOK: true},
		{name: "no year", row: StudentRow{FullName: "A"}, wantOK: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ns, ok := tt.row.newStudent()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantYear, ns.EnrollmentYear)
		})
	}

	ns, _ := StudentRow{FullName: "A", Status: " Lulus "}.newStudent()
	assert.Equal(t, "lulus", ns.Status)
}

func TestExportStudent(t *testing.T) {
	row := exportStudent(StudentDetail{
		Student: Student{
			FullName:       "Eko",
			NISN:           null.StringFrom("0099"),
			EnrollmentYear: null.IntFrom(2020),
			Status:         StatusActive,
		},
		Classes: []ClassRef{{ID: "1", Name: "7A"}, {ID: "2", Name: "Pramuka"}},
	})
	assert.Equal(t, Cell("Eko"), row.FullName)
	assert.Equal(t, Cell("0099"), row.NISN)
	assert.Equal(t, Cell(""), row.BirthPlace)
	assert.Equal(t, Cell("2020"), row.EnrollmentYear)
	assert.Equal(t, Cell("7A; Pramuka"), row.Classes)
}

func intPtr(i int) *int { return &i }
