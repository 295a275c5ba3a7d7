package core_test

import (
	"github.com/tinmerunka/MedicalSystem/core"
)

// Test entities mirroring the clinical domain the ORM was written for.

type Doctor struct {
	Id       int
	FullName string `db:"FullName"`
}

type MedicalHistory struct {
	Id        int
	PatientId int
	Diagnosis string
}

type Patient struct {
	Id        int
	FirstName string
	LastName  string
	OIB       string
	DoctorId  *int

	Doctor           *Doctor          // navigation, not persisted
	MedicalHistories []MedicalHistory // navigation, not persisted
}

func patientSchema() *core.SchemaMeta[Patient] {
	return core.Schema[Patient](
		core.OverrideField(func(p *Patient) *string { return &p.OIB }, core.Unique()),
		core.OverrideField(func(p *Patient) **int { return &p.DoctorId }, core.References("Doctors")),
	)
}

func doctorSchema() *core.SchemaMeta[Doctor] {
	return core.Schema[Doctor]()
}

func medicalHistorySchema() *core.SchemaMeta[MedicalHistory] {
	return core.Schema[MedicalHistory](
		core.OverrideField(func(h *MedicalHistory) *int { return &h.PatientId }, core.References("Patients")),
	)
}
