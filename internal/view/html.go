package view

import (
	"html/template"
	"strings"
)

// cardMarkup mirrors the card structure of the original web UI. Interaction
// is named through data-action attributes rather than inline handlers; the
// template engine escapes all user-supplied text.
const cardMarkup = `{{- if .Empty -}}
<div class="empty-state">No items found.{{if .AddHint}} Click &quot;Add Item&quot; to create one.{{end}}</div>
{{- else -}}
{{- range .Cards -}}
<div class="item-card" data-item-id="{{.ID}}">
  <div class="item-header">
    <div class="item-name">{{.Name}}</div>
    <div class="item-category">{{.Category}}</div>
  </div>
  <div class="item-total">Total Quantity: <strong>{{.Total}}</strong></div>
  <div class="locations">
{{- range .Rows}}
    <div class="location">
      <span class="location-name">{{.Location}}</span>
      <div class="quantity-control">
        <button class="quantity-btn" data-action="decrement" data-location="{{.Location}}"{{if not .CanDecrement}} disabled{{end}}>&minus;</button>
        <span class="quantity-display">{{.Quantity}}</span>
        <button class="quantity-btn" data-action="increment" data-location="{{.Location}}"{{if not .CanIncrement}} disabled{{end}}>+</button>
      </div>
    </div>
{{- end}}
  </div>
{{- if .HasNote}}
  <div class="item-note">Note: {{.Note}}</div>
{{- end}}
  <div class="item-footer">
    <span>Last edited: {{.LastEdited}}</span>
{{- if .ShowActions}}
    <div class="item-actions">
      <button data-action="edit">Edit</button>
      <button class="delete-btn" data-action="delete">Delete</button>
    </div>
{{- end}}
  </div>
</div>
{{- end -}}
{{- end -}}`

var cardTemplate = template.Must(template.New("cards").Parse(cardMarkup))

// RenderHTML produces escaped card markup for the given frame.
func RenderHTML(frame Frame) (string, error) {
	var builder strings.Builder
	if err := cardTemplate.Execute(&builder, frame); err != nil {
		return "", err
	}
	return builder.String(), nil
}
