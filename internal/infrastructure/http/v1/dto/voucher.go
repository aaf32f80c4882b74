package dto

// VoucherListQuery binds the search screen's filter parameters.
type VoucherListQuery struct {
	VoucherNo    string   `form:"voucherNo"`
	VoucherNos   []string `form:"voucherNos"`
	Center       string   `form:"center"`
	DeptCode     string   `form:"deptCode"`
	VendorCode   string   `form:"vendorCode"`
	DeliveryDate string   `form:"deliveryDate"` // "2006-01-02"
	MakerType    string   `form:"makerType"`    // "jv", "regular" or empty
	SortBy       string   `form:"sortBy"`
	SortDesc     bool     `form:"sortDesc"`
}
