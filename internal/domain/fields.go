package domain

// NotSpecified marks a field that recovery could not fill.
const NotSpecified = "Not specified"

// MaxRecommendations caps the recommendation list.
const MaxRecommendations = 10

// RecommendationBullet prefixes every recommendation line.
const RecommendationBullet = "• "

type PatientInfo struct {
	Name            string
	MRNumber        string
	DateOfOperation string
	Age             string
	Gender          string
	AccountNo       string
	Height          string
	Weight          string
}

func NewPatientInfo() PatientInfo {
	return PatientInfo{
		Name:            NotSpecified,
		MRNumber:        NotSpecified,
		DateOfOperation: NotSpecified,
		Age:             NotSpecified,
		Gender:          NotSpecified,
		AccountNo:       NotSpecified,
		Height:          NotSpecified,
		Weight:          NotSpecified,
	}
}

// Field is one labelled value as printed in a report.
type Field struct {
	Label string
	Value string
}

func (p PatientInfo) Fields() []Field {
	return []Field{
		{"Patient Name", p.Name},
		{"MR Number", p.MRNumber},
		{"Date of Operation", p.DateOfOperation},
		{"Age", p.Age},
		{"Gender", p.Gender},
		{"Account No", p.AccountNo},
		{"Height", p.Height},
		{"Weight", p.Weight},
	}
}

// Recovered reports whether at least one field holds a real value.
func (p PatientInfo) Recovered() bool { return anyRecovered(p.Fields()) }

type SurgicalInfo struct {
	PreoperativeDiagnosis  string
	PostoperativeDiagnosis string
	OperationPerformed     string
	Surgeon                string
	Anesthesia             string
	Condition              string
	Complications          string
}

func NewSurgicalInfo() SurgicalInfo {
	return SurgicalInfo{
		PreoperativeDiagnosis:  NotSpecified,
		PostoperativeDiagnosis: NotSpecified,
		OperationPerformed:     NotSpecified,
		Surgeon:                NotSpecified,
		Anesthesia:             NotSpecified,
		Condition:              NotSpecified,
		Complications:          NotSpecified,
	}
}

func (s SurgicalInfo) Fields() []Field {
	return []Field{
		{"Preoperative Diagnosis", s.PreoperativeDiagnosis},
		{"Postoperative Diagnosis", s.PostoperativeDiagnosis},
		{"Operation Performed", s.OperationPerformed},
		{"Surgeon", s.Surgeon},
		{"Anesthesia", s.Anesthesia},
		{"Condition", s.Condition},
		{"Complications", s.Complications},
	}
}

func (s SurgicalInfo) Recovered() bool { return anyRecovered(s.Fields()) }

// Fields bundles everything recovered from one document.
type Fields struct {
	Patient         PatientInfo
	Surgical        SurgicalInfo
	Recommendations []string
}

func anyRecovered(fs []Field) bool {
	for _, f := range fs {
		if f.Value != NotSpecified {
			return true
		}
	}
	return false
}
