package school

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/volatiletech/null/v8"

	"github.com/penahikmah/sekolah/core"
)

// ClassSeparator joins class names in exported student rows.
const ClassSeparator = "; "

// Cell is a spreadsheet cell value. It accepts JSON strings, numbers and booleans.
type Cell string

func (c *Cell) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Cell(s)
		return nil
	}
	*c = Cell(data)
	return nil
}

func (c Cell) String() string {
	return strings.TrimSpace(string(c))
}

type (
	StudentRow struct {
		FullName       Cell `json:"nama_lengkap"`
		NISN           Cell `json:"nisn"`
		BirthPlace     Cell `json:"tempat_lahir"`
		BirthDate      Cell `json:"tanggal_lahir"`
		Gender         Cell `json:"jenis_kelamin"`
		Address        Cell `json:"alamat"`
		ParentName     Cell `json:"nama_orang_tua"`
		ParentPhone    Cell `json:"hp_orang_tua"`
		EnrollmentYear Cell `json:"tahun_masuk"`
		Status         Cell `json:"status"`
		Classes        Cell `json:"kelas,omitempty"` // export only
	}

	TeacherRow struct {
		FullName  Cell `json:"nama_lengkap"`
		NIP       Cell `json:"nip"`
		Subject   Cell `json:"mata_pelajaran"`
		Education Cell `json:"pendidikan"`
		Phone     Cell `json:"no_hp"`
		Position  Cell `json:"jabatan"`
		Status    Cell `json:"status"`
	}

	StudentImport struct {
		Rows []StudentRow `json:"rows"`
	}

	TeacherImport struct {
		Rows []TeacherRow `json:"rows"`
	}
)

func cell(s null.String) Cell {
	return Cell(s.String)
}

func exportStudent(s StudentDetail) StudentRow {
	names := make([]string, 0, len(s.Classes))
	for _, c := range s.Classes {
		names = append(names, c.Name)
	}
	var year Cell
	if s.EnrollmentYear.Valid {
		year = Cell(strconv.Itoa(s.EnrollmentYear.Int))
	}
	return StudentRow{
		FullName:       Cell(s.FullName),
		NISN:           cell(s.NISN),
		BirthPlace:     cell(s.BirthPlace),
		BirthDate:      cell(s.BirthDate),
		Gender:         cell(s.Gender),
		Address:        cell(s.Address),
		ParentName:     cell(s.ParentName),
		ParentPhone:    cell(s.ParentPhone),
		EnrollmentYear: year,
		Status:         Cell(s.Status),
		Classes:        Cell(strings.Join(names, ClassSeparator)),
	}
}

func exportTeacher(t Teacher) TeacherRow {
	return TeacherRow{
		FullName:  Cell(t.FullName),
		NIP:       cell(t.NIP),
		Subject:   cell(t.Subject),
		Education: cell(t.Education),
		Phone:     cell(t.Phone),
		Position:  cell(t.Position),
		Status:    Cell(t.Status),
	}
}

// newStudent maps an imported row; ok is false for rows without a name.
// Unparsable years are dropped rather than failing the whole import.
func (r StudentRow) newStudent() (ns NewStudent, ok bool) {
	name := r.FullName.String()
	if name == "" {
		return NewStudent{}, false
	}
	ns = NewStudent{
		FullName:    name,
		NISN:        r.NISN.String(),
		BirthPlace:  r.BirthPlace.String(),
		BirthDate:   r.BirthDate.String(),
		Gender:      r.Gender.String(),
		Address:     r.Address.String(),
		ParentName:  r.ParentName.String(),
		ParentPhone: r.ParentPhone.String(),
		Status:      core.CleanString(r.Status.String(), true /* lower */),
	}
	if year, err := strconv.Atoi(leadingDigits(r.EnrollmentYear.String())); err == nil {
		ns.EnrollmentYear = &year
	}
	return ns, true
}

func (r TeacherRow) newTeacher() (nt NewTeacher, ok bool) {
	name := r.FullName.String()
	if name == "" {
		return NewTeacher{}, false
	}
	return NewTeacher{
		FullName:  name,
		NIP:       r.NIP.String(),
		Subject:   r.Subject.String(),
		Education: r.Education.String(),
		Phone:     r.Phone.String(),
		Position:  r.Position.String(),
		Status:    core.CleanString(r.Status.String(), true /* lower */),
	}, true
}

// leadingDigits keeps the integer prefix of s ("2021.0" -> "2021").
func leadingDigits(s string) string {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return s[:end]
}
