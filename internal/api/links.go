package api

import (
	"fmt"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// links maps operation paths to their RFC 8288 Link header values.
var links = map[string][]string{
	"/health": {
		`</api/v1/info>; rel="info"`,
		`</api/v1/layers>; rel="layers"`,
		`</api/v1/select>; rel="selection"`,
	},
	"/api/v1/info": {
		`</health>; rel="health"`,
		`</api/v1/layers>; rel="layers"`,
		`</api/v1/tables>; rel="tables"`,
	},
	"/api/v1/layers": {
		`</api/v1/layers/upload>; rel="upload"`,
		`</api/v1/select>; rel="selection"`,
		`</api/v1/events>; rel="events"`,
	},
	"/api/v1/layers/{id}": {
		`</api/v1/layers>; rel="collection"`,
	},
	"/api/v1/layers/{id}/properties": {
		`</api/v1/layers>; rel="collection"`,
	},
	"/api/v1/select": {
		`</api/v1/layers>; rel="layers"`,
	},
	"/api/v1/tables": {
		`</api/v1/query>; rel="query"`,
	},
}

// itemLinks are relative to an item path and follow its self link.
var itemLinks = map[string][]string{
	"/api/v1/layers/{id}": {
		`<%s/geojson>; rel="geojson"`,
		`<%s/style>; rel="style"`,
		`<%s/properties>; rel="properties"`,
		`<%s/export.fgb>; rel="flatgeobuf"`,
		`<%s/export.pmtiles>; rel="pmtiles"`,
	},
}

// LinkTransformer returns a Huma Transformer that injects RFC 8288 Link headers.
func LinkTransformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}

		for _, link := range links[op.Path] {
			ctx.AppendHeader("Link", link)
		}

		// Item endpoints get a self link
		if strings.Contains(op.Path, "{") {
			self := ctx.URL().Path
			ctx.AppendHeader("Link", fmt.Sprintf(`<%s>; rel="self"`, self))
			for _, link := range itemLinks[op.Path] {
				ctx.AppendHeader("Link", fmt.Sprintf(link, self))
			}
		}

		return v, nil
	}
}
