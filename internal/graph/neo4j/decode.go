package neo4j

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/efebarandurmaz/conceptgraph/internal/graph"
)

type txResponse struct {
	Results *[]statementResult `json:"results"`
	Errors  []txError          `json:"errors"`
}

type statementResult struct {
	Columns []string  `json:"columns"`
	Data    []dataRow `json:"data"`
}

type dataRow struct {
	Row []json.RawMessage `json:"row"`
}

type txError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DecodePaths parses a transactional endpoint response whose first column is
// a path in row format. Each path becomes the ordered node "value" strings;
// null and value-less placeholder nodes are dropped. Any shape violation
// fails the whole decode with graph.ErrDecode, as does a response that
// carries store errors: the statement ran but produced no usable data.
func DecodePaths(raw []byte) ([]graph.PathRecord, error) {
	var resp txResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", graph.ErrDecode, err)
	}
	if len(resp.Errors) > 0 {
		e := resp.Errors[0]
		return nil, fmt.Errorf("%w: %s: %s", graph.ErrDecode, e.Code, e.Message)
	}
	if resp.Results == nil {
		return nil, fmt.Errorf("%w: missing results", graph.ErrDecode)
	}

	paths := []graph.PathRecord{}
	if len(*resp.Results) == 0 {
		return paths, nil
	}
	for i, row := range (*resp.Results)[0].Data {
		if len(row.Row) == 0 {
			return nil, fmt.Errorf("%w: row %d is empty", graph.ErrDecode, i)
		}
		p, err := decodePath(row.Row[0])
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", graph.ErrDecode, i, err)
		}
		if len(p.Nodes) > 0 {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

// decodePath reads the alternating node/relationship array of one path.
// Nodes sit at even positions.
func decodePath(raw json.RawMessage) (graph.PathRecord, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil || entries == nil {
		return graph.PathRecord{}, fmt.Errorf("path is not an array")
	}
	var p graph.PathRecord
	for i, entry := range entries {
		if isNull(entry) {
			continue
		}
		var props map[string]any
		if err := json.Unmarshal(entry, &props); err != nil {
			return graph.PathRecord{}, fmt.Errorf("entry %d is not an object", i)
		}
		if i%2 == 1 {
			continue
		}
		v, ok := props["value"]
		if !ok || v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return graph.PathRecord{}, fmt.Errorf("entry %d value is %T, not a string", i, v)
		}
		p.Nodes = append(p.Nodes, s)
	}
	return p, nil
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
