package affiliate

import (
	"strings"

	"affiliate-link/internal/model"
)

var statusAliases = map[string]model.ConversionStatus{
	"paid":          model.StatusPaid,
	"purchase":      model.StatusPaid,
	"purchased":     model.StatusPaid,
	"completed":     model.StatusPaid,
	"success":       model.StatusPaid,
	"cart":          model.StatusCart,
	"add_to_cart":   model.StatusCart,
	"added_to_cart": model.StatusCart,
}

// NormalizeStatus 将联盟网络上报的状态映射为 click / cart / paid
func NormalizeStatus(s string) model.ConversionStatus {
	if st, ok := statusAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return st
	}
	return model.StatusClick
}
