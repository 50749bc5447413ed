package faq

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Chunk is one searchable unit of clinic knowledge.
type Chunk struct {
	ID       string
	Category string
	Text     string
}

type knowledgeFile struct {
	ClinicDetails *struct {
		Name           string `json:"name"`
		Doctor         string `json:"doctor"`
		Specialization string `json:"specialization"`
		Experience     string `json:"experience"`
		Address        string `json:"address"`
		Phone          string `json:"phone"`
		Email          string `json:"email"`
	} `json:"clinic_details"`
	LocationAndDirections *struct {
		Address         string `json:"address"`
		Landmark        string `json:"landmark"`
		Directions      string `json:"directions"`
		Parking         string `json:"parking"`
		PublicTransport string `json:"public_transport"`
		Accessibility   string `json:"accessibility"`
	} `json:"location_and_directions"`
	HoursOfOperation *struct {
		MondayToFriday string `json:"monday_to_friday"`
		Saturday       string `json:"saturday"`
		Sunday         string `json:"sunday"`
		Holidays       string `json:"holidays"`
		EmergencyNote  string `json:"emergency_note"`
	} `json:"hours_of_operation"`
	InsuranceAndBilling *struct {
		AcceptedInsurance []string          `json:"accepted_insurance"`
		PaymentMethods    []string          `json:"payment_methods"`
		BillingPolicy     string            `json:"billing_policy"`
		ConsultationFees  map[string]string `json:"consultation_fees"`
	} `json:"insurance_and_billing"`
	VisitPreparation *struct {
		FirstVisitRequirements []string `json:"first_visit_requirements"`
		WhatToBring            []string `json:"what_to_bring"`
	} `json:"visit_preparation"`
	ServicesOffered []string          `json:"services_offered"`
	Policies        map[string]string `json:"policies"`
}

// LoadKnowledge reads the clinic knowledge artifact and flattens its
// nested sections into retrievable chunks.
func LoadKnowledge(path string) ([]Chunk, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge file: %w", err)
	}

	var file knowledgeFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode knowledge file: %w", err)
	}

	var chunks []Chunk

	if d := file.ClinicDetails; d != nil {
		chunks = append(chunks, Chunk{
			ID:       "clinic_basic_info",
			Category: "clinic_details",
			Text: fmt.Sprintf("Clinic: %s. Doctor: %s, %s. Experience: %s. Address: %s. Phone: %s. Email: %s",
				d.Name, d.Doctor, d.Specialization, d.Experience, d.Address, d.Phone, d.Email),
		})
	}

	if l := file.LocationAndDirections; l != nil {
		chunks = append(chunks, Chunk{
			ID:       "location_directions",
			Category: "location",
			Text: fmt.Sprintf("Clinic location: %s. Landmark: %s. Directions: %s Parking: %s Public transport: %s Accessibility: %s",
				l.Address, l.Landmark, l.Directions, l.Parking, l.PublicTransport, l.Accessibility),
		})
	}

	if h := file.HoursOfOperation; h != nil {
		chunks = append(chunks, Chunk{
			ID:       "hours_of_operation",
			Category: "hours",
			Text: fmt.Sprintf("Clinic hours: Monday to Friday: %s. Saturday: %s. Sunday: %s. Holidays: %s. %s",
				h.MondayToFriday, h.Saturday, h.Sunday, h.Holidays, h.EmergencyNote),
		})
	}

	if ins := file.InsuranceAndBilling; ins != nil {
		chunks = append(chunks, Chunk{
			ID:       "insurance_billing",
			Category: "insurance",
			Text: "Accepted insurance: " + strings.Join(ins.AcceptedInsurance, ", ") +
				". Payment methods: " + strings.Join(ins.PaymentMethods, ", ") +
				". Billing policy: " + ins.BillingPolicy,
		})
		if len(ins.ConsultationFees) > 0 {
			var fees []string
			for visit, fee := range ins.ConsultationFees {
				fees = append(fees, fmt.Sprintf("%s: %s", strings.ReplaceAll(visit, "_", " "), fee))
			}
			chunks = append(chunks, Chunk{
				ID:       "consultation_fees",
				Category: "fees",
				Text:     "Consultation fees: " + strings.Join(fees, ", "),
			})
		}
	}

	if prep := file.VisitPreparation; prep != nil {
		if len(prep.FirstVisitRequirements) > 0 {
			chunks = append(chunks, Chunk{
				ID:       "first_visit_requirements",
				Category: "preparation",
				Text:     "First visit requirements: " + strings.Join(prep.FirstVisitRequirements, ", "),
			})
		}
		if len(prep.WhatToBring) > 0 {
			chunks = append(chunks, Chunk{
				ID:       "what_to_bring",
				Category: "preparation",
				Text:     "What to bring: " + strings.Join(prep.WhatToBring, ", "),
			})
		}
	}

	if len(file.ServicesOffered) > 0 {
		chunks = append(chunks, Chunk{
			ID:       "services_offered",
			Category: "services",
			Text:     "Services offered: " + strings.Join(file.ServicesOffered, ", "),
		})
	}

	for name, policy := range file.Policies {
		chunks = append(chunks, Chunk{
			ID:       "policy_" + name,
			Category: "policies",
			Text:     fmt.Sprintf("%s policy: %s", strings.ReplaceAll(name, "_", " "), policy),
		})
	}

	if len(chunks) == 0 {
		return nil, fmt.Errorf("knowledge file %s contains no usable sections", path)
	}

	return chunks, nil
}
