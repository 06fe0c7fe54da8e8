package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/reelcat/reelcat/internal/importer"
)

// startImportRequest is the body of POST /api/v1/imports.
type startImportRequest struct {
	RootLocation    string `json:"rootLocation"`
	TargetFolderID  *int64 `json:"targetFolderId,omitempty"`
	RootWrapperName string `json:"rootWrapperName,omitempty"`
}

func (s *Server) startImport(c echo.Context) error {
	var req startImportRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.RootLocation == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "rootLocation is required")
	}

	runID, err := s.imports.Start(req.RootLocation, req.TargetFolderID, req.RootWrapperName)
	if err != nil {
		if errors.Is(err, importer.ErrImportInProgress) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return err
	}

	return c.JSON(http.StatusAccepted, map[string]string{"runId": runID.String()})
}

func (s *Server) importStatus(c echo.Context) error {
	status, err := s.imports.Status()
	if err != nil {
		if errors.Is(err, importer.ErrNoImport) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return err
	}
	return c.JSON(http.StatusOK, status)
}

func (s *Server) cancelImport(c echo.Context) error {
	if err := s.imports.Cancel(); err != nil {
		if errors.Is(err, importer.ErrNoImport) {
			return echo.NewHTTPError(http.StatusNotFound, "no import is running")
		}
		return err
	}
	return c.NoContent(http.StatusAccepted)
}
