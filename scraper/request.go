package scraper

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"car_tracker/models"
)

const (
	upstreamBase = "https://www.carjet.com"
	dateLayout   = "02/01/2006"
	hourLayout   = "15:04"
	correlField  = "frmSession"
	driverAge    = "35"
)

// SearchRequest is the upstream-ready form submission for one ListingRequest.
type SearchRequest struct {
	Request       models.ListingRequest
	URL           string
	Form          url.Values
	CorrelationID string
	Resolved      bool
}

// Target is what the fetcher submits.
func (s SearchRequest) Target() Target {
	return Target{URL: s.URL, Form: s.Form}
}

// CacheKeyURL is the request URL with the form folded into the query. The
// per-request correlation id is left out so identical searches share a key.
func (s SearchRequest) CacheKeyURL() string {
	q := url.Values{}
	for k, v := range s.Form {
		if k == correlField {
			continue
		}
		q[k] = v
	}
	return s.URL + "?" + q.Encode()
}

// RequestBuilder turns a ListingRequest into the upstream search payload.
type RequestBuilder struct {
	locations *LocationTable
	base      string
	newID     func() string
}

func NewRequestBuilder(locations *LocationTable) *RequestBuilder {
	return &RequestBuilder{
		locations: locations,
		base:      upstreamBase,
		newID:     func() string { return uuid.NewString() },
	}
}

// Build resolves the location and formats the dates the way the upstream
// form expects. Unknown locations fall back to the default code.
func (b *RequestBuilder) Build(req models.ListingRequest) SearchRequest {
	lang := strings.ToLower(strings.TrimSpace(req.Language))
	if lang == "" {
		lang = "pt"
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "EUR"
	}

	code, ok := b.locations.Resolve(req.Location)
	req.LocationCode = code
	req.Language = lang
	req.Currency = currency

	pickDate := req.Pickup.Format(dateLayout)
	dropDate := req.Return.Format(dateLayout)
	pickHour := req.Pickup.Format(hourLayout)
	dropHour := req.Return.Format(hourLayout)
	id := b.newID()

	form := url.Values{}
	form.Set("pickup", req.Location)
	form.Set("dropoff", req.Location)
	form.Set("pickupId", code)
	form.Set("dst_id", code)
	form.Set("zoneCode", code)
	form.Set("fechaRecogida", pickDate)
	form.Set("fechaEntrega", dropDate)
	form.Set("fechaRecogidaSelHour", pickHour)
	form.Set("fechaEntregaSelHour", dropHour)
	form.Set("idioma", strings.ToUpper(lang))
	form.Set("moneda", currency)
	form.Set("chkOneWay", "SI")
	form.Set("frmDestino", code)
	form.Set("frmFechaRecogida", pickDate+" "+pickHour)
	form.Set("frmFechaDevolucion", dropDate+" "+dropHour)
	form.Set("frmMoneda", currency)
	form.Set("frmTipoVeh", "CAR")
	form.Set("frmEdad", driverAge)
	form.Set(correlField, id)

	return SearchRequest{
		Request:       req,
		URL:           fmt.Sprintf("%s/do/list/%s", b.base, lang),
		Form:          form,
		CorrelationID: id,
		Resolved:      ok,
	}
}
