package main

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"dcad-backend/internal/assembler"
	"dcad-backend/internal/scrapers/dcad"
	"dcad-backend/internal/service"

	"github.com/gin-gonic/gin"
)

// maximum size of a single uploaded page
const maxDocumentSize = 8 << 20

type handler struct {
	svc service.Service
}

func NewRouter(svc service.Service) *gin.Engine {
	h := handler{svc: svc}

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})
	r.GET("/detail/:account_id", h.detail)
	r.POST("/extract", h.extract)
	return r
}

func errorResponse(c *gin.Context, status int, code string, err error) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": err.Error(),
		},
	})
}

func (h handler) detail(c *gin.Context) {
	refresh := c.Query("refresh") == "true" || c.Query("refresh") == "1"
	detail, err := h.svc.Detail(c.Request.Context(), c.Param("account_id"), refresh)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, detail)
	case errors.Is(err, dcad.ErrInvalidAccountID):
		errorResponse(c, http.StatusBadRequest, "INVALID_ACCOUNT_ID", err)
	case errors.Is(err, dcad.ErrAccountNotFound), errors.Is(err, service.ErrUnavailable):
		errorResponse(c, http.StatusNotFound, "NOT_FOUND", err)
	default:
		errorResponse(c, http.StatusBadGateway, "SCRAPE_FAILED", err)
	}
}

// extractRequest is the json form of POST /extract, the multipart form uses
// the same names for its file fields.
type extractRequest struct {
	Account                 string `json:"account"`
	History                 string `json:"history"`
	ExemptionDetails        string `json:"exemption_details"`
	ExemptionDetailsHistory string `json:"exemption_details_history"`
	AccountURL              string `json:"account_url"`
	HistoryURL              string `json:"history_url"`
	ExemptionDetailsURL     string `json:"exemption_details_url"`
}

func (r extractRequest) documents() assembler.Documents {
	return assembler.Documents{
		Account:                 r.Account,
		History:                 r.History,
		ExemptionDetails:        r.ExemptionDetails,
		ExemptionDetailsHistory: r.ExemptionDetailsHistory,
		AccountURL:              r.AccountURL,
		HistoryURL:              r.HistoryURL,
		ExemptionDetailsURL:     r.ExemptionDetailsURL,
	}
}

func readFormFile(form *multipart.Form, name string) (string, error) {
	files := form.File[name]
	if len(files) == 0 {
		return "", nil
	}
	f, err := files[0].Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	contents, err := io.ReadAll(io.LimitReader(f, maxDocumentSize))
	if err != nil {
		return "", err
	}
	return string(contents), nil
}

func bindMultipart(c *gin.Context) (extractRequest, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return extractRequest{}, err
	}
	req := extractRequest{
		AccountURL:          c.PostForm("account_url"),
		HistoryURL:          c.PostForm("history_url"),
		ExemptionDetailsURL: c.PostForm("exemption_details_url"),
	}
	fields := []struct {
		name string
		out  *string
	}{
		{"account", &req.Account},
		{"history", &req.History},
		{"exemption_details", &req.ExemptionDetails},
		{"exemption_details_history", &req.ExemptionDetailsHistory},
	}
	for _, field := range fields {
		*field.out, err = readFormFile(form, field.name)
		if err != nil {
			return extractRequest{}, err
		}
	}
	return req, nil
}

func (h handler) extract(c *gin.Context) {
	var req extractRequest
	var err error
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		req, err = bindMultipart(c)
	} else {
		err = c.ShouldBindJSON(&req)
	}
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}

	rec, err := h.svc.Extract(c.Request.Context(), req.documents())
	if errors.Is(err, assembler.ErrMissingAccount) {
		errorResponse(c, http.StatusBadRequest, "MISSING_ACCOUNT", err)
		return
	}
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "EXTRACT_FAILED", err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

