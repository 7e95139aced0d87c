package jsonapi

import "fmt"

// ResourceBuilder provides a fluent API for building Resource objects.
type ResourceBuilder struct {
	resource Resource
}

// NewResource creates a new ResourceBuilder with the given type and ID.
func NewResource(resourceType, id string) *ResourceBuilder {
	return &ResourceBuilder{
		resource: Resource{
			Type:       resourceType,
			ID:         id,
			Attributes: make(map[string]any),
		},
	}
}

// Attr adds an attribute to the resource.
func (b *ResourceBuilder) Attr(key string, value any) *ResourceBuilder {
	b.resource.Attributes[key] = value
	return b
}

// Attrs adds multiple attributes to the resource. "type" is skipped since
// it is a top-level member.
func (b *ResourceBuilder) Attrs(attrs map[string]any) *ResourceBuilder {
	for k, v := range attrs {
		if k == "type" {
			continue
		}
		b.resource.Attributes[k] = v
	}
	return b
}

// Meta adds metadata to the resource.
func (b *ResourceBuilder) Meta(key string, value any) *ResourceBuilder {
	if b.resource.Meta == nil {
		b.resource.Meta = make(Meta)
	}
	b.resource.Meta[key] = value
	return b
}

// Link sets the self link for the resource.
func (b *ResourceBuilder) Link(self string) *ResourceBuilder {
	b.resource.Links = &ResourceLinks{Self: self}
	return b
}

// Build returns the constructed Resource.
func (b *ResourceBuilder) Build() Resource {
	return b.resource
}

// ResourceFromRecord creates a Resource from a table row. The ID is the
// value under key, formatted as text; the whole row becomes the attributes.
func ResourceFromRecord(resourceType, key string, record map[string]any) Resource {
	id := ""
	if v, ok := record[key]; ok && v != nil {
		id = fmt.Sprint(v)
	}
	return NewResource(resourceType, id).Attrs(record).Build()
}

// ResourcesFromRecords creates a slice of Resources from table rows.
func ResourcesFromRecords[M ~map[string]any](resourceType, key string, records []M) []Resource {
	resources := make([]Resource, len(records))
	for i, r := range records {
		resources[i] = ResourceFromRecord(resourceType, key, r)
	}
	return resources
}
