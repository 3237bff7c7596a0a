package header

import (
	"fmt"
	"strings"

	"github.com/antzucaro/matchr"
	"github.com/pkg/errors"

	"github.com/skybound/blackbox/frame"
)

// recognizedProperties lists the "Field <kind> <property>" suffixes
// the builder knows how to bind, used only to produce a fuzzy-matched
// suggestion when an unrecognized property shows up.
var recognizedProperties = []string{"name", "signed", "predictor", "encoding", "width"}

// Warner receives diagnostic messages for non-fatal anomalies
// encountered while building field definitions.
type Warner func(string)

// Build assembles FieldDefs[kind] for every frame kind whose headers
// are present.
//
// Binding failure (an encoding or predictor id with no registered
// function) is fatal.
func Build(headers frame.Headers, warn Warner) (map[frame.Kind][]frame.FieldDef, error) {
	defs := map[frame.Kind][]frame.FieldDef{}

	for _, kind := range frame.Kinds {
		prefix := "Field " + string(kind) + " "
		for key, values := range headers {
			if !strings.HasPrefix(key, prefix) {
				continue
			}
			prop := strings.TrimSpace(strings.TrimPrefix(key, prefix))
			if _, ok := defs[kind]; !ok {
				defs[kind] = make([]frame.FieldDef, len(values))
			}
			if len(values) != len(defs[kind]) {
				return nil, errors.Errorf("Field %s %s: length %d does not match established width %d",
					string(kind), prop, len(values), len(defs[kind]))
			}
			if err := applyProperty(defs[kind], prop, values, warn); err != nil {
				return nil, errors.Wrapf(err, "Field %s %s", string(kind), prop)
			}
		}
	}

	applyGPSCoordQuirk(defs[frame.Gps])

	if inter, ok := defs[frame.Inter]; ok {
		intra, hasIntra := defs[frame.Intra]
		if hasIntra {
			for i := range inter {
				if i < len(intra) {
					inter[i].Name = intra[i].Name
				}
			}
		}
	}

	return defs, nil
}

func applyProperty(fdefs []frame.FieldDef, prop string, values []frame.HeaderValue, warn Warner) error {
	switch prop {
	case "name":
		for i, v := range values {
			fdefs[i].Name = v.Str
		}
	case "signed":
		for i, v := range values {
			fdefs[i].Signed = v.Int != 0
		}
	case "width":
		for i, v := range values {
			fdefs[i].Width = int(v.Int)
		}
	case "predictor":
		for i, v := range values {
			id := int(v.Int)
			pred, ok := frame.Predictors[id]
			if !ok {
				return errors.Errorf("no predictor registered for id %d", id)
			}
			fdefs[i].PredictorID = id
			fdefs[i].Predictor = pred
		}
	case "encoding":
		for i, v := range values {
			id := int(v.Int)
			if fdefs[i].Name == "GPS_coord[1]" && id == 7 {
				// Quirk preserved from the source: GPS_coord[1]
				// declared with encoding 7 is rebound to the
				// scalar-signed-varint variant (256), not the
				// 3-element group that encoding 7 otherwise names.
				id = frame.EncodingGPSCoordSpecial
			}
			dec, ok := frame.Decoders[id]
			if !ok {
				return errors.Errorf("no decoder registered for id %d", id)
			}
			fdefs[i].EncodingID = id
			fdefs[i].Decoder = dec
		}
	default:
		if warn != nil {
			warn(suggestionMessage(prop))
		}
	}
	return nil
}

// applyGPSCoordQuirk re-checks the quirk for the encoding property
// even when encoding was applied before name was (header key ordering
// within a Go map is unspecified), since applyProperty's inline check
// only fires when name was already set at encoding-application time.
func applyGPSCoordQuirk(gps []frame.FieldDef) {
	for i := range gps {
		if gps[i].Name == "GPS_coord[1]" && gps[i].EncodingID == 7 {
			if dec, ok := frame.Decoders[frame.EncodingGPSCoordSpecial]; ok {
				gps[i].EncodingID = frame.EncodingGPSCoordSpecial
				gps[i].Decoder = dec
			}
		}
	}
}

func suggestionMessage(prop string) string {
	best := ""
	bestDist := -1
	for _, known := range recognizedProperties {
		d := matchr.Levenshtein(prop, known)
		if bestDist < 0 || d < bestDist {
			bestDist = d
			best = known
		}
	}
	if best != "" && bestDist <= 3 {
		return fmt.Sprintf("unrecognized field property %q (did you mean %q?)", prop, best)
	}
	return fmt.Sprintf("unrecognized field property %q", prop)
}
