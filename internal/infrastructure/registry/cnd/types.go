package cnd

import (
	"fmt"
	"strings"

	"github.com/comit-network/swapd/internal/core/domain"
)

// cnd speaks a siren-flavoured REST API: every swap is an entity carrying
// its properties and the actions currently available.

type infoResponse struct {
	ID              string   `json:"id"`
	ListenAddresses []string `json:"listen_addresses"`
}

type sirenField struct {
	Name  string   `json:"name"`
	Class []string `json:"class"`
	Type  string   `json:"type,omitempty"`
}

type sirenAction struct {
	Name   string       `json:"name"`
	Href   string       `json:"href"`
	Method string       `json:"method,omitempty"`
	Fields []sirenField `json:"fields,omitempty"`
}

type sirenLink struct {
	Rel  []string `json:"rel"`
	Href string   `json:"href"`
}

type swapProperties struct {
	ID           string                `json:"id"`
	Role         string                `json:"role"`
	Status       string                `json:"status"`
	Counterparty string                `json:"counterparty"`
	Parameters   domain.SwapParameters `json:"parameters"`
}

type swapEntity struct {
	Class      []string       `json:"class,omitempty"`
	Properties swapProperties `json:"properties"`
	Actions    []sirenAction  `json:"actions,omitempty"`
	Links      []sirenLink    `json:"links,omitempty"`
}

type swapsResponse struct {
	Entities []swapEntity `json:"entities"`
}

type postSwapResponse struct {
	ID string `json:"id"`
}

// problem is the body of cnd error responses.
type problem struct {
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
}

func (p problem) String() string {
	if p.Detail == "" {
		return p.Title
	}
	return fmt.Sprintf("%s: %s", p.Title, p.Detail)
}

func (e swapEntity) toDomain() domain.Swap {
	actions := make([]domain.Action, 0, len(e.Actions))
	for _, a := range e.Actions {
		fields := make([]domain.Field, 0, len(a.Fields))
		for _, f := range a.Fields {
			fields = append(fields, domain.Field{
				Name: f.Name,
				Kind: domain.ParseFieldKind(f.Class),
			})
		}
		method := strings.ToUpper(a.Method)
		if method == "" {
			method = "GET"
		}
		actions = append(actions, domain.Action{
			Name:   domain.ActionName(a.Name),
			Href:   a.Href,
			Method: method,
			Fields: fields,
		})
	}

	return domain.Swap{
		ID:           e.Properties.ID,
		Role:         domain.Role(e.Properties.Role),
		Counterparty: e.Properties.Counterparty,
		Status:       domain.SwapStatus(e.Properties.Status),
		Parameters:   e.Properties.Parameters,
		Actions:      actions,
	}
}
