package httpapi

import (
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// signalSchema is the contract the webhook enforces before a payload
// reaches the executor. Unknown fields pass through; they are ignored.
const signalSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["symbol", "side", "timeframe"],
  "properties": {
    "symbol": {"type": "string", "minLength": 1},
    "side": {"type": "string", "enum": ["LONG", "SHORT"]},
    "order_type": {"type": "string", "enum": ["MARKET", "LIMIT"]},
    "timeframe": {"type": "string", "enum": ["15m", "1h", "4h"]}
  }
}`

var compiledSignalSchema = mustCompileSignalSchema()

func mustCompileSignalSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("signal.json", strings.NewReader(signalSchema)); err != nil {
		panic(err)
	}
	return compiler.MustCompile("signal.json")
}
