// Package sandbox loads a small demonstration catalog so a fresh install has
// searchable content.
package sandbox

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/fhirlab/catalog/internal/domain/audit"
	"github.com/fhirlab/catalog/internal/domain/labtest"
	"github.com/fhirlab/catalog/internal/platform/fhir"
)

const observationCategorySystem = "http://terminology.hl7.org/CodeSystem/observation-category"
const labCategorySystem = "http://example.org/lab-categories"

// Seeder writes sample definitions through the service so they pass the same
// validation and indexing as API-created tests.
type Seeder struct {
	svc *labtest.Service
	log zerolog.Logger
}

func NewSeeder(svc *labtest.Service, log zerolog.Logger) *Seeder {
	return &Seeder{svc: svc, log: log}
}

// Seed creates the sample tests, skipping any whose id already exists.
func (s *Seeder) Seed(ctx context.Context) (int, error) {
	meta := audit.Meta{Actor: "seeder", Origin: "sandbox"}
	created := 0
	for _, def := range SampleTests() {
		if _, err := s.svc.GetTest(ctx, def.ID); err == nil {
			s.log.Debug().Str("test_id", def.ID).Msg("sample test already present")
			continue
		}
		result, issues, err := s.svc.CreateTest(ctx, def, meta)
		if err != nil {
			return created, fmt.Errorf("seed %s: %w", def.Name, err)
		}
		if result == nil {
			return created, fmt.Errorf("seed %s: validation failed: %+v", def.Name, fhir.ErrorsOnly(issues))
		}
		s.log.Info().Str("test_id", result.ID).Str("name", result.Name).Msg("sample test created")
		created++
	}
	return created, nil
}

// SampleTests returns the built-in demonstration definitions.
func SampleTests() []*labtest.LabTestDefinition {
	return []*labtest.LabTestDefinition{
		cbcTest(),
		bmpTest(),
		tshTest(),
		hba1cTest(),
		lipidTest(),
	}
}

func laboratoryCategory() []fhir.CodeableConcept {
	return []fhir.CodeableConcept{
		fhir.Concept("", fhir.NewCoding(observationCategorySystem, "laboratory", "Laboratory")),
	}
}

func venipuncture() []fhir.CodeableConcept {
	return []fhir.CodeableConcept{
		fhir.Concept("", fhir.SNOMEDCoding("28520004", "Venipuncture")),
	}
}

func serumCollected() *fhir.CodeableConcept {
	cc := fhir.Concept("Serum", fhir.SNOMEDCoding("119364003", "Serum specimen"))
	return &cc
}

func wholeBloodCollected() *fhir.CodeableConcept {
	cc := fhir.Concept("Whole blood", fhir.SNOMEDCoding("119297000", "Blood specimen"))
	return &cc
}

func f(v float64) *float64 { return &v }

func b(v bool) *bool { return &v }

func cbcTest() *labtest.LabTestDefinition {
	return &labtest.LabTestDefinition{
		ID:   "test-cbc-001",
		Name: "Complete Blood Count with Automated Differential",
		Code: fhir.Concept("Complete Blood Count with Automated Differential",
			fhir.LOINCCoding("57021-8", "CBC W Auto Differential panel - Blood"),
			fhir.SNOMEDCoding("26604007", "Complete blood count")),
		Status: labtest.StatusActive,
		Category: []fhir.CodeableConcept{
			fhir.Concept("Hematology", fhir.NewCoding(labCategorySystem, "hematology", "Hematology")),
		},
		Description:     "A complete blood count (CBC) is a blood test used to evaluate your overall health and detect a wide range of disorders, including anemia, infection and leukemia.",
		ClinicalPurpose: "Screening for blood disorders, monitoring treatment response, routine health assessment",
		ObservationDefinition: &labtest.ObservationDefinition{
			Type:   "ObservationDefinition",
			ID:     "obs-def-cbc",
			Status: labtest.StatusActive,
			Code: fhir.Concept("Complete Blood Count with Automated Differential",
				fhir.LOINCCoding("57021-8", "CBC W Auto Differential panel - Blood")),
			Category:               laboratoryCategory(),
			PermittedDataType:      []string{"Quantity"},
			MultipleResultsAllowed: b(true),
			PreferredReportName:    "Complete Blood Count",
		},
		SpecimenDefinition: &labtest.SpecimenDefinition{
			Type:               "SpecimenDefinition",
			ID:                 "spec-def-cbc",
			Status:             labtest.StatusActive,
			TypeCollected:      wholeBloodCollected(),
			PatientPreparation: []string{"No special preparation required"},
			TimeAspect:         "Random",
			Collection:         venipuncture(),
		},
		ReferenceRanges: []labtest.ReferenceRange{
			{Parameter: "WBC", Range: labtest.RangeSpec{Low: f(4.5), High: f(11.0), Unit: "10^3/uL"}, AgeRange: "Adult"},
			{Parameter: "RBC", Range: labtest.RangeSpec{Low: f(4.2), High: f(5.4), Unit: "10^6/uL"}, AgeRange: "Adult", Gender: "Female"},
			{Parameter: "Hemoglobin", Range: labtest.RangeSpec{Low: f(12.0), High: f(16.0), Unit: "g/dL"}, AgeRange: "Adult", Gender: "Female"},
		},
		CriticalValues: map[string]labtest.RangeSpec{
			"WBC":        {Low: f(2.0), High: f(50.0), Unit: "10^3/uL"},
			"Hemoglobin": {Low: f(7.0), High: f(20.0), Unit: "g/dL"},
			"Platelets":  {Low: f(50.0), High: f(1000.0), Unit: "10^3/uL"},
		},
		AnalyticalMethod: "Flow cytometry with impedance counting",
		TurnaroundTime:   map[string]any{"routine": 2, "stat": 1, "unit": "hours"},
		Cost:             map[string]any{"routine": 45.00, "stat": 75.00, "currency": "USD"},
		OrderingInformation: map[string]any{
			"order_code":     "CBC",
			"minimum_volume": "3 mL",
			"container":      "EDTA tube (lavender top)",
			"stability":      "24 hours at room temperature",
		},
	}
}

func bmpTest() *labtest.LabTestDefinition {
	return &labtest.LabTestDefinition{
		ID:   "test-bmp-001",
		Name: "Basic Metabolic Panel",
		Code: fhir.Concept("Basic Metabolic Panel",
			fhir.LOINCCoding("80048-0", "Basic metabolic panel - Serum or Plasma"),
			fhir.SNOMEDCoding("166312007", "Basic metabolic panel")),
		Status: labtest.StatusActive,
		Category: []fhir.CodeableConcept{
			fhir.Concept("Clinical Chemistry", fhir.NewCoding(labCategorySystem, "chemistry", "Clinical Chemistry")),
		},
		Description:     "A basic metabolic panel is a group of blood tests that provides information about your body's metabolism, kidney function, and electrolyte balance.",
		ClinicalPurpose: "Assessment of kidney function, electrolyte balance, blood sugar levels, and acid-base balance",
		ObservationDefinition: &labtest.ObservationDefinition{
			Type:   "ObservationDefinition",
			ID:     "obs-def-bmp",
			Status: labtest.StatusActive,
			Code: fhir.Concept("Basic Metabolic Panel",
				fhir.LOINCCoding("80048-0", "Basic metabolic panel - Serum or Plasma")),
			Category:               laboratoryCategory(),
			PermittedDataType:      []string{"Quantity"},
			MultipleResultsAllowed: b(true),
			PreferredReportName:    "Basic Metabolic Panel",
		},
		SpecimenDefinition: &labtest.SpecimenDefinition{
			Type:               "SpecimenDefinition",
			ID:                 "spec-def-bmp",
			Status:             labtest.StatusActive,
			TypeCollected:      serumCollected(),
			PatientPreparation: []string{"Fasting for 8-12 hours preferred but not required"},
			TimeAspect:         "Random or fasting",
			Collection:         venipuncture(),
		},
		ReferenceRanges: []labtest.ReferenceRange{
			{Parameter: "Glucose", Range: labtest.RangeSpec{Low: f(70), High: f(100), Unit: "mg/dL"}, Condition: "Fasting"},
			{Parameter: "Sodium", Range: labtest.RangeSpec{Low: f(136), High: f(145), Unit: "mmol/L"}},
			{Parameter: "Potassium", Range: labtest.RangeSpec{Low: f(3.5), High: f(5.0), Unit: "mmol/L"}},
			{Parameter: "Creatinine", Range: labtest.RangeSpec{Low: f(0.6), High: f(1.2), Unit: "mg/dL"}, AgeRange: "Adult"},
		},
		CriticalValues: map[string]labtest.RangeSpec{
			"Glucose":    {Low: f(50), High: f(400), Unit: "mg/dL"},
			"Potassium":  {Low: f(2.5), High: f(6.5), Unit: "mmol/L"},
			"Sodium":     {Low: f(120), High: f(160), Unit: "mmol/L"},
			"Creatinine": {High: f(4.0), Unit: "mg/dL"},
		},
		AnalyticalMethod: "Ion-selective electrode and enzymatic methods",
		TurnaroundTime:   map[string]any{"routine": 4, "stat": 1, "unit": "hours"},
		Cost:             map[string]any{"routine": 35.00, "stat": 60.00, "currency": "USD"},
		OrderingInformation: map[string]any{
			"order_code":     "BMP",
			"minimum_volume": "2 mL",
			"container":      "Gold top (SST) or red top tube",
			"stability":      "7 days refrigerated",
		},
	}
}

func tshTest() *labtest.LabTestDefinition {
	return &labtest.LabTestDefinition{
		ID:   "test-tsh-001",
		Name: "Thyroid Stimulating Hormone",
		Code: fhir.Concept("Thyroid Stimulating Hormone (TSH)",
			fhir.LOINCCoding("3016-3", "Thyrotropin [Units/volume] in Serum or Plasma"),
			fhir.SNOMEDCoding("61167004", "Thyroid stimulating hormone measurement")),
		Status: labtest.StatusActive,
		Category: []fhir.CodeableConcept{
			fhir.Concept("Endocrinology", fhir.NewCoding(labCategorySystem, "endocrinology", "Endocrinology")),
		},
		Description:     "TSH is a hormone produced by the pituitary gland that regulates thyroid function. This test is used to diagnose thyroid disorders.",
		ClinicalPurpose: "Diagnosis of hyperthyroidism and hypothyroidism, monitoring thyroid hormone replacement therapy",
		ObservationDefinition: &labtest.ObservationDefinition{
			Type:   "ObservationDefinition",
			ID:     "obs-def-tsh",
			Status: labtest.StatusActive,
			Code: fhir.Concept("Thyroid Stimulating Hormone",
				fhir.LOINCCoding("3016-3", "Thyrotropin [Units/volume] in Serum or Plasma")),
			Category:               laboratoryCategory(),
			PermittedDataType:      []string{"Quantity"},
			MultipleResultsAllowed: b(false),
			PreferredReportName:    "TSH",
		},
		SpecimenDefinition: &labtest.SpecimenDefinition{
			Type:               "SpecimenDefinition",
			ID:                 "spec-def-tsh",
			Status:             labtest.StatusActive,
			TypeCollected:      serumCollected(),
			PatientPreparation: []string{"No special preparation required"},
			TimeAspect:         "Random",
			Collection:         venipuncture(),
		},
		ReferenceRanges: []labtest.ReferenceRange{
			{Parameter: "TSH", Range: labtest.RangeSpec{Low: f(0.4), High: f(4.0), Unit: "mIU/L"}, AgeRange: "Adult"},
		},
		CriticalValues: map[string]labtest.RangeSpec{
			"TSH": {Low: f(0.01), High: f(100.0), Unit: "mIU/L"},
		},
		AnalyticalMethod: "Chemiluminescent immunoassay (CLIA)",
		TurnaroundTime:   map[string]any{"routine": 24, "stat": 4, "unit": "hours"},
		Cost:             map[string]any{"routine": 75.00, "stat": 125.00, "currency": "USD"},
		OrderingInformation: map[string]any{
			"order_code":     "TSH",
			"minimum_volume": "1 mL",
			"container":      "Gold top (SST) or red top tube",
			"stability":      "7 days refrigerated, 2 days at room temperature",
		},
	}
}

func hba1cTest() *labtest.LabTestDefinition {
	return &labtest.LabTestDefinition{
		ID:   "test-hba1c-001",
		Name: "Hemoglobin A1c",
		Code: fhir.Concept("Hemoglobin A1c (HbA1c)",
			fhir.LOINCCoding("4548-4", "Hemoglobin A1c/Hemoglobin.total in Blood"),
			fhir.SNOMEDCoding("43396009", "Hemoglobin A1c measurement")),
		Status: labtest.StatusActive,
		Category: []fhir.CodeableConcept{
			fhir.Concept("Clinical Chemistry", fhir.NewCoding(labCategorySystem, "chemistry", "Clinical Chemistry")),
		},
		Description:     "Hemoglobin A1c reflects average blood glucose levels over the past 2-3 months and is used for diabetes diagnosis and monitoring.",
		ClinicalPurpose: "Diagnosis of diabetes mellitus, monitoring long-term glycemic control in diabetic patients",
		ObservationDefinition: &labtest.ObservationDefinition{
			Type:   "ObservationDefinition",
			ID:     "obs-def-hba1c",
			Status: labtest.StatusActive,
			Code: fhir.Concept("Hemoglobin A1c",
				fhir.LOINCCoding("4548-4", "Hemoglobin A1c/Hemoglobin.total in Blood")),
			Category:               laboratoryCategory(),
			PermittedDataType:      []string{"Quantity"},
			MultipleResultsAllowed: b(false),
			PreferredReportName:    "Hemoglobin A1c",
		},
		SpecimenDefinition: &labtest.SpecimenDefinition{
			Type:               "SpecimenDefinition",
			ID:                 "spec-def-hba1c",
			Status:             labtest.StatusActive,
			TypeCollected:      wholeBloodCollected(),
			PatientPreparation: []string{"No fasting required"},
			TimeAspect:         "Random",
			Collection:         venipuncture(),
		},
		ReferenceRanges: []labtest.ReferenceRange{
			{Parameter: "HbA1c", Range: labtest.RangeSpec{Low: f(4.0), High: f(5.6), Unit: "%"}, Interpretation: "Normal"},
			{Parameter: "HbA1c", Range: labtest.RangeSpec{Low: f(5.7), High: f(6.4), Unit: "%"}, Interpretation: "Prediabetes"},
			{Parameter: "HbA1c", Range: labtest.RangeSpec{Low: f(6.5), Unit: "%"}, Interpretation: "Diabetes"},
		},
		CriticalValues: map[string]labtest.RangeSpec{
			"HbA1c": {High: f(15.0), Unit: "%"},
		},
		AnalyticalMethod: "High-performance liquid chromatography (HPLC)",
		TurnaroundTime:   map[string]any{"routine": 24, "stat": 4, "unit": "hours"},
		Cost:             map[string]any{"routine": 85.00, "stat": 140.00, "currency": "USD"},
		OrderingInformation: map[string]any{
			"order_code":     "HBA1C",
			"minimum_volume": "2 mL",
			"container":      "EDTA tube (lavender top)",
			"stability":      "7 days refrigerated",
		},
	}
}

func lipidTest() *labtest.LabTestDefinition {
	return &labtest.LabTestDefinition{
		ID:   "test-lipid-001",
		Name: "Lipid Panel",
		Code: fhir.Concept("Lipid Panel",
			fhir.LOINCCoding("57698-3", "Lipid panel with direct LDL - Serum or Plasma"),
			fhir.SNOMEDCoding("252253000", "Lipid studies")),
		Status: labtest.StatusActive,
		Category: []fhir.CodeableConcept{
			fhir.Concept("Clinical Chemistry", fhir.NewCoding(labCategorySystem, "chemistry", "Clinical Chemistry")),
		},
		Description:     "A lipid panel measures cholesterol and triglycerides in the blood to assess cardiovascular disease risk.",
		ClinicalPurpose: "Assessment of cardiovascular disease risk, monitoring lipid-lowering therapy",
		ObservationDefinition: &labtest.ObservationDefinition{
			Type:   "ObservationDefinition",
			ID:     "obs-def-lipid",
			Status: labtest.StatusActive,
			Code: fhir.Concept("Lipid Panel",
				fhir.LOINCCoding("57698-3", "Lipid panel with direct LDL - Serum or Plasma")),
			Category:               laboratoryCategory(),
			PermittedDataType:      []string{"Quantity"},
			MultipleResultsAllowed: b(true),
			PreferredReportName:    "Lipid Panel",
		},
		SpecimenDefinition: &labtest.SpecimenDefinition{
			Type:               "SpecimenDefinition",
			ID:                 "spec-def-lipid",
			Status:             labtest.StatusActive,
			TypeCollected:      serumCollected(),
			PatientPreparation: []string{"Fasting for 9-12 hours required"},
			TimeAspect:         "Fasting",
			Collection:         venipuncture(),
		},
		ReferenceRanges: []labtest.ReferenceRange{
			{Parameter: "Total Cholesterol", Range: labtest.RangeSpec{High: f(200), Unit: "mg/dL"}, Interpretation: "Desirable"},
			{Parameter: "LDL Cholesterol", Range: labtest.RangeSpec{High: f(100), Unit: "mg/dL"}, Interpretation: "Optimal"},
			{Parameter: "HDL Cholesterol", Range: labtest.RangeSpec{Low: f(40), Unit: "mg/dL"}, Interpretation: "Low (Male)"},
			{Parameter: "Triglycerides", Range: labtest.RangeSpec{High: f(150), Unit: "mg/dL"}, Interpretation: "Normal"},
		},
		AnalyticalMethod: "Enzymatic methods",
		TurnaroundTime:   map[string]any{"routine": 24, "stat": 4, "unit": "hours"},
		Cost:             map[string]any{"routine": 55.00, "stat": 90.00, "currency": "USD"},
		OrderingInformation: map[string]any{
			"order_code":           "LIPID",
			"minimum_volume":       "2 mL",
			"container":            "Gold top (SST) or red top tube",
			"stability":            "7 days refrigerated",
			"special_instructions": "Patient must fast 9-12 hours",
		},
	}
}
