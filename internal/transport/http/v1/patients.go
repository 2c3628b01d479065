package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/domain"
)

// RegisterPatient registers a patient from the public form.
// POST /api/patients
func (h *Handler) RegisterPatient(c echo.Context) error {
	var in domain.PatientInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	p, err := h.service.RegisterPatient(c.Request().Context(), in)
	if err != nil {
		return h.fail(c, err, "Failed to register patient")
	}
	return ok(c, http.StatusCreated, payload{"patient_id": p.PatientID, "patient": p})
}

// GET /api/patients
func (h *Handler) ListPatients(c echo.Context) error {
	patients, err := h.service.ListPatients(c.Request().Context())
	if err != nil {
		return h.fail(c, err, "Failed to fetch patients")
	}
	return ok(c, http.StatusOK, payload{"patients": patients})
}

// GetPatient returns a patient with their visits.
// GET /api/patients/:id
func (h *Handler) GetPatient(c echo.Context) error {
	rec, err := h.service.GetPatient(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err, "Failed to fetch patient")
	}
	return ok(c, http.StatusOK, payload{"patient": rec})
}

// PUT /api/patients/:id
func (h *Handler) UpdatePatient(c echo.Context) error {
	var in domain.PatientInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	p, err := h.service.UpdatePatient(c.Request().Context(), c.Param("id"), in)
	if err != nil {
		return h.fail(c, err, "Failed to update patient")
	}
	return ok(c, http.StatusOK, payload{"patient": p})
}

// DELETE /api/patients/:id
func (h *Handler) DeletePatient(c echo.Context) error {
	if err := h.service.DeletePatient(c.Request().Context(), c.Param("id")); err != nil {
		return h.fail(c, err, "Failed to delete patient")
	}
	return ok(c, http.StatusOK, payload{"message": "Patient deleted"})
}

// POST /api/visits
func (h *Handler) RecordVisit(c echo.Context) error {
	var in domain.VisitInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	v, err := h.service.RecordVisit(c.Request().Context(), in)
	if err != nil {
		return h.fail(c, err, "Failed to record visit")
	}
	return ok(c, http.StatusCreated, payload{"visit": v})
}

// GET /api/visits
func (h *Handler) ListVisits(c echo.Context) error {
	visits, err := h.service.ListVisits(c.Request().Context())
	if err != nil {
		return h.fail(c, err, "Failed to fetch visits")
	}
	return ok(c, http.StatusOK, payload{"visits": visits})
}
