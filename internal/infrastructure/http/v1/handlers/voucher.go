package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/toyohara-midori/dcin/internal/core/apperror"
	"github.com/toyohara-midori/dcin/internal/infrastructure/http/v1/dto"
	"github.com/toyohara-midori/dcin/internal/voucher"
)

// VoucherHandler serves the voucher search, detail and export screens.
type VoucherHandler struct {
	*BaseHandler
	repo voucher.SearchRepository
}

// NewVoucherHandler creates the voucher handler.
func NewVoucherHandler(base *BaseHandler, repo voucher.SearchRepository) *VoucherHandler {
	return &VoucherHandler{BaseHandler: base, repo: repo}
}

// RegisterRoutes wires the voucher endpoints onto the group.
func (h *VoucherHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/filter-options", h.FilterOptions)
	rg.GET("/export", h.Export)
	rg.GET("/:no", h.Detail)
}

func (h *VoucherHandler) listFilter(c *gin.Context, firstLineOnly bool) (voucher.ListFilter, bool) {
	var q dto.VoucherListQuery
	if !h.BindQuery(c, &q) {
		return voucher.ListFilter{}, false
	}

	f := voucher.ListFilter{
		VoucherNo:     q.VoucherNo,
		VoucherNos:    q.VoucherNos,
		Center:        q.Center,
		DeptCode:      q.DeptCode,
		VendorCode:    q.VendorCode,
		MakerType:     q.MakerType,
		SortBy:        q.SortBy,
		SortDesc:      q.SortDesc,
		FirstLineOnly: firstLineOnly,
	}

	if q.DeliveryDate != "" {
		d, err := time.Parse("2006-01-02", q.DeliveryDate)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid deliveryDate, want YYYY-MM-DD"))
			return voucher.ListFilter{}, false
		}
		f.DeliveryDate = &d
	}

	// An unfiltered list query defaults to today's deliveries; the full
	// ledger is only reachable through an explicit filter.
	if firstLineOnly && !f.HasCriteria() {
		now := time.Now()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		f.DeliveryDate = &today
	}
	return f, true
}

// List handles GET /vouchers: one row per voucher for the search screen.
func (h *VoucherHandler) List(c *gin.Context) {
	f, ok := h.listFilter(c, true)
	if !ok {
		return
	}

	rows, err := h.repo.List(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, rows)
}

// Detail handles GET /vouchers/:no.
func (h *VoucherHandler) Detail(c *gin.Context) {
	no := c.Param("no")
	detail, err := h.repo.GetDetail(c.Request.Context(), no)
	if err != nil {
		h.Error(c, err)
		return
	}
	if detail == nil {
		h.Error(c, apperror.NewNotFound("voucher", no))
		return
	}
	h.OK(c, detail)
}

// FilterOptions handles GET /vouchers/filter-options for the dropdowns.
func (h *VoucherHandler) FilterOptions(c *gin.Context) {
	opts, err := h.repo.FilterOptions(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, opts)
}

// Export handles GET /vouchers/export: every matching line as cp932 CSV.
func (h *VoucherHandler) Export(c *gin.Context) {
	f, ok := h.listFilter(c, false)
	if !ok {
		return
	}

	rows, err := h.repo.List(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}

	data, err := voucher.ExportCSV(rows)
	if err != nil {
		h.Error(c, apperror.NewInternal(err))
		return
	}

	filename := fmt.Sprintf("vouchers_%s.csv", time.Now().Format("20060102_150405"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv; charset=Shift_JIS", data)
}
