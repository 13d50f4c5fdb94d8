package orchestrator

import (
	"servicedesk-control-plane/internal/apperr"
	wfdomain "servicedesk-control-plane/internal/workflow/domain"
)

// parsedPayload is the typed form of a command's payload map.
type parsedPayload struct {
	fields     wfdomain.Fields
	assigneeID string
}

// parsePayload validates the boundary shape of Command.Payload. Every value
// must be a string and every key must be known; anything else fails with
// ValidationError before the item is even loaded.
func parsePayload(payload map[string]any) (parsedPayload, error) {
	var p parsedPayload
	for key, raw := range payload {
		val, ok := raw.(string)
		if !ok {
			return parsedPayload{}, &apperr.ValidationError{Field: key, Reason: "must be a string"}
		}
		switch key {
		case "title":
			v := val
			p.fields.Title = &v
		case "description":
			v := val
			p.fields.Description = &v
		case "category":
			c := wfdomain.Category(val)
			p.fields.Category = &c
		case "priority":
			pr := wfdomain.Priority(val)
			p.fields.Priority = &pr
		case "assignee_id":
			p.assigneeID = val
		default:
			return parsedPayload{}, &apperr.ValidationError{Field: key, Reason: "unknown payload field"}
		}
	}
	return p, nil
}
