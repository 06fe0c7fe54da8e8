package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/reelcat/reelcat/internal/catalog"
)

func (s *Server) listFolders(c echo.Context) error {
	folders, err := s.store.ListFolders(c.Request().Context(), nil)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, folders)
}

func (s *Server) listChildFolders(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	folders, err := s.store.ListFolders(c.Request().Context(), &id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, folders)
}

func (s *Server) listFolderLists(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	lists, err := s.store.ListLists(c.Request().Context(), &id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, lists)
}

func (s *Server) listRootLists(c echo.Context) error {
	lists, err := s.store.ListLists(c.Request().Context(), nil)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, lists)
}

func (s *Server) listItems(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	items, err := s.store.ListItems(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

// getItem looks an item up by its natural key, passed as query parameters.
func (s *Server) getItem(c echo.Context) error {
	filePath := c.QueryParam("filePath")
	mediaType := c.QueryParam("mediaType")
	if filePath == "" || mediaType == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "filePath and mediaType are required")
	}

	item, err := s.store.GetItem(c.Request().Context(), filePath, mediaType)
	if err != nil {
		if errors.Is(err, catalog.ErrItemNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "item not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, item)
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}
