package http

import (
	"errors"
	"log/slog"
	"net/http"

	"rechnerei/internal/core"
	"rechnerei/internal/storage"
)

type customersView struct {
	Customers []core.Customer
}

// handleCustomers serves the customer list partial and creates customers.
func (s *Server) handleCustomers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		customers, err := s.repo.ListCustomers(r.Context())
		if err != nil {
			slog.ErrorContext(r.Context(), "Failed to list customers", "error", err)
			InternalServerError("Kunden konnten nicht geladen werden").Write(w)
			return
		}
		s.render(w, r, "customers", customersView{Customers: customers})
	case http.MethodPost:
		s.handleCreateCustomer(w, r)
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	customer := core.Customer{
		Name:    sanitizeInput(r.FormValue("name")),
		Email:   sanitizeInput(r.FormValue("email")),
		Phone:   sanitizeInput(r.FormValue("phone")),
		Address: sanitizeInput(r.FormValue("address")),
		Note:    sanitizeInput(r.FormValue("note")),
	}
	if err := customer.Validate(); err != nil {
		UnprocessableEntityError("Bitte einen Namen angeben").Write(w)
		return
	}

	created, err := s.repo.CreateCustomer(r.Context(), customer)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to create customer", "error", err)
		InternalServerError("Kunde konnte nicht gespeichert werden").Write(w)
		return
	}

	NewHTMXResponse().
		Trigger("customers:refresh", struct{}{}).
		TriggerFormReset().
		TriggerSuccessNotification("Kunde \"" + created.Name + "\" angelegt").
		Write(w)
}

func (s *Server) handleDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	id, ok := parseID(r, "id")
	if !ok {
		BadRequestError("Ungültige Kunden-ID").Write(w)
		return
	}

	if err := s.repo.DeleteCustomer(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			NotFoundError("Kunde nicht gefunden").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Failed to delete customer", "customer_id", id, "error", err)
		InternalServerError("Kunde konnte nicht gelöscht werden").Write(w)
		return
	}

	NewHTMXResponse().
		Trigger("customers:refresh", struct{}{}).
		Trigger("projects:refresh", struct{}{}).
		TriggerSuccessNotification("Kunde gelöscht").
		Write(w)
}

type projectsView struct {
	Projects  []core.Project
	Customers []core.Customer
}

// handleProjects serves the project list partial and creates projects.
func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		projects, err := s.repo.ListProjects(r.Context())
		if err != nil {
			slog.ErrorContext(r.Context(), "Failed to list projects", "error", err)
			InternalServerError("Projekte konnten nicht geladen werden").Write(w)
			return
		}
		customers, err := s.repo.ListCustomers(r.Context())
		if err != nil {
			slog.ErrorContext(r.Context(), "Failed to list customers", "error", err)
			InternalServerError("Kunden konnten nicht geladen werden").Write(w)
			return
		}
		s.render(w, r, "projects", projectsView{Projects: projects, Customers: customers})
	case http.MethodPost:
		s.handleCreateProject(w, r)
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	customerID, ok := parseID(r, "customer_id")
	if !ok {
		UnprocessableEntityError("Bitte einen Kunden auswählen").Write(w)
		return
	}
	project := core.Project{
		CustomerID:  customerID,
		Name:        sanitizeInput(r.FormValue("name")),
		Description: sanitizeInput(r.FormValue("description")),
	}
	if err := project.Validate(); err != nil {
		UnprocessableEntityError("Bitte einen Projektnamen angeben").Write(w)
		return
	}

	created, err := s.repo.CreateProject(r.Context(), project)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to create project", "error", err)
		InternalServerError("Projekt konnte nicht gespeichert werden").Write(w)
		return
	}

	NewHTMXResponse().
		Trigger("projects:refresh", struct{}{}).
		TriggerFormReset().
		TriggerSuccessNotification("Projekt \"" + created.Name + "\" angelegt").
		Write(w)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	id, ok := parseID(r, "id")
	if !ok {
		BadRequestError("Ungültige Projekt-ID").Write(w)
		return
	}

	if err := s.repo.DeleteProject(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			NotFoundError("Projekt nicht gefunden").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Failed to delete project", "project_id", id, "error", err)
		InternalServerError("Projekt konnte nicht gelöscht werden").Write(w)
		return
	}

	NewHTMXResponse().
		Trigger("projects:refresh", struct{}{}).
		TriggerSuccessNotification("Projekt gelöscht").
		Write(w)
}

type catalogView struct {
	Items []core.CatalogItem
}

// handleCatalog serves the service catalog partial and creates items.
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		items, err := s.repo.ListCatalogItems(r.Context())
		if err != nil {
			slog.ErrorContext(r.Context(), "Failed to list catalog items", "error", err)
			InternalServerError("Leistungen konnten nicht geladen werden").Write(w)
			return
		}
		s.render(w, r, "catalog", catalogView{Items: items})
	case http.MethodPost:
		s.handleCreateCatalogItem(w, r)
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) handleCreateCatalogItem(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	cents, err := core.ParseDecimalToCents(r.FormValue("price"))
	if err != nil {
		UnprocessableEntityError("Ungültiger Preis").Write(w)
		return
	}
	item := core.CatalogItem{
		Name:  sanitizeInput(r.FormValue("name")),
		Unit:  sanitizeInput(r.FormValue("unit")),
		Price: core.Money{Cents: cents},
	}
	if item.Unit == "" {
		item.Unit = "h"
	}
	if err := item.Validate(); err != nil {
		UnprocessableEntityError("Bitte eine Bezeichnung angeben").Write(w)
		return
	}

	created, err := s.repo.CreateCatalogItem(r.Context(), item)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to create catalog item", "error", err)
		InternalServerError("Leistung konnte nicht gespeichert werden").Write(w)
		return
	}

	NewHTMXResponse().
		Trigger("catalog:refresh", struct{}{}).
		TriggerFormReset().
		TriggerSuccessNotification("Leistung \"" + created.Name + "\" angelegt").
		Write(w)
}

func (s *Server) handleDeleteCatalogItem(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	id, ok := parseID(r, "id")
	if !ok {
		BadRequestError("Ungültige Leistungs-ID").Write(w)
		return
	}

	if err := s.repo.DeleteCatalogItem(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			NotFoundError("Leistung nicht gefunden").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Failed to delete catalog item", "catalog_item_id", id, "error", err)
		InternalServerError("Leistung konnte nicht gelöscht werden").Write(w)
		return
	}

	NewHTMXResponse().
		Trigger("catalog:refresh", struct{}{}).
		TriggerSuccessNotification("Leistung gelöscht").
		Write(w)
}
