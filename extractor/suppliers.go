package extractor

import "strings"

// supplierAliases maps upstream supplier codes to display names.
var supplierAliases = map[string]string{
	"AUP":  "Auto Prudente Rent a Car",
	"SXT":  "Sixt",
	"ECR":  "Europcar",
	"KED":  "Keddy by Europcar",
	"EPI":  "EPI",
	"ALM":  "Alamo",
	"AVX":  "Avis",
	"BGX":  "Budget",
	"ENT":  "Enterprise",
	"DTG":  "Dollar",
	"DTG1": "Rentacar",
	"DGT1": "Rentacar",
	"FLZ":  "Flizzr",
	"EU2":  "Goldcar Non-Refundable",
	"EUR":  "Goldcar",
	"EUK":  "Goldcar Key'n Go",
	"GMO":  "Green Motion",
	"GMO1": "Green Motion",
	"SAD":  "Drivalia",
	"DOH":  "Drive on Holidays",
	"D4F":  "Drive4Fun",
	"DVM":  "Drive4Move",
	"CAE":  "Cael",
	"CEN":  "Centauro",
	"ABB":  "Abbycar",
	"ABB1": "Abbycar Non-Refundable",
	"BSD":  "Best Deal",
	"ATR":  "Autorent",
	"AUU":  "Auto Union",
	"THR":  "Thrifty",
	"HER":  "Hertz",
	"LOC":  "Million",
}

// SupplierName resolves a supplier code; unknown codes are returned as-is.
func SupplierName(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if name, ok := supplierAliases[code]; ok {
		return name
	}
	return code
}
