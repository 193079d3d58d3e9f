package suggestion

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// OriginPatientRecord labels diagnoses entered directly on the patient
// record, as opposed to those inherited from an enrollment's preset.
const OriginPatientRecord = "patient record"

// Collector assembles the diagnosis set relevant to one patient: codes stored
// on the patient record plus codes inherited from the condition presets of
// currently active enrollments. The union is not deduplicated; a code present
// via both origins yields two separately matchable entries.
type Collector struct {
	patients    PatientSource
	enrollments EnrollmentSource
}

func NewCollector(patients PatientSource, enrollments EnrollmentSource) *Collector {
	return &Collector{patients: patients, enrollments: enrollments}
}

// Collect returns the patient's combined diagnosis set. An empty result is
// not an error; it means no suggestions are possible.
func (c *Collector) Collect(ctx context.Context, patientID uuid.UUID) ([]DiagnosisCode, error) {
	var diagnoses []DiagnosisCode

	own, err := c.patients.Diagnoses(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("collect patient diagnoses: %w", err)
	}
	for _, d := range own {
		d.OriginEnrollmentID = nil
		d.OriginLabel = OriginPatientRecord
		diagnoses = append(diagnoses, d)
	}

	active, err := c.enrollments.ActiveForPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("collect enrollment diagnoses: %w", err)
	}
	for _, enr := range active {
		enrID := enr.ID
		for _, d := range enr.Diagnoses {
			diagnoses = append(diagnoses, DiagnosisCode{
				Code:               d.Code,
				CodingSystem:       d.CodingSystem,
				Display:            d.Display,
				OriginEnrollmentID: &enrID,
				OriginLabel:        enr.PresetName,
			})
		}
	}

	return diagnoses, nil
}
