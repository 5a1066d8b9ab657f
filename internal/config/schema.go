package config

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "supertrader-config.json"

const configSchema = `{
  "type": "object",
  "required": ["slack"],
  "properties": {
    "app": {
      "type": "object",
      "properties": {
        "log_level": {"enum": ["debug", "info", "warn", "warning", "error", "critical"]},
        "log_dir": {"type": "string"}
      }
    },
    "slack": {
      "type": "object",
      "required": ["token", "channel"],
      "properties": {
        "token": {"type": "string"},
        "channel": {"type": "string"},
        "api_url": {"type": "string"},
        "suspend_minutes": {"type": "integer", "minimum": 0}
      }
    },
    "telegram": {
      "type": "object",
      "properties": {
        "bot_token": {"type": "string"},
        "chat_id": {"type": ["string", "integer"]}
      }
    },
    "holiday": {
      "type": "object",
      "propertyNames": {"pattern": "^[0-9]{4}$"},
      "additionalProperties": {
        "type": "array",
        "items": {"type": "integer"}
      }
    },
    "binance": {
      "type": "object",
      "properties": {
        "api_key": {"type": "string"},
        "secret": {"type": "string"},
        "market": {"enum": ["spot", "future"]},
        "rest_base_url": {"type": "string"},
        "timeout_seconds": {"type": "integer", "minimum": 0},
        "proxy_url": {"type": "string"},
        "requests_per_second": {"type": "number", "minimum": 0},
        "rate_limit_cooldown_ms": {"type": "integer", "minimum": 0}
      }
    },
    "creon": {
      "type": "object",
      "properties": {
        "account_index": {"type": "integer", "minimum": 0},
        "goods_filter": {"type": "integer", "minimum": 0}
      }
    },
    "trader": {
      "type": "object",
      "properties": {
        "confirm": {"enum": ["", "filled", "no_open_orders"]},
        "poll_interval_ms": {"type": "integer", "minimum": 0},
        "liquidation_poll_interval_ms": {"type": "integer", "minimum": 0},
        "max_rate_limit_retries": {"type": "integer", "minimum": 0},
        "max_poll_errors": {"type": "integer", "minimum": 0},
        "health_symbol": {"type": "string"}
      }
    },
    "store": {
      "type": "object",
      "properties": {"path": {"type": "string"}}
    },
    "http": {
      "type": "object",
      "properties": {"addr": {"type": "string"}}
    }
  }
}`

var (
	schemaOnce     sync.Once
	schemaCompiled *jsonschema.Schema
	schemaErr      error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, strings.NewReader(configSchema)); err != nil {
			schemaErr = err
			return
		}
		schemaCompiled, schemaErr = compiler.Compile(schemaURL)
	})
	return schemaCompiled, schemaErr
}

func validateSchema(raw []byte) error {
	sch, err := compiledSchema()
	if err != nil {
		return newError("", "compiling config schema failed", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return newError("", "config is not valid JSON", err)
	}
	if err := sch.Validate(doc); err != nil {
		return newError("", "config does not match schema", err)
	}
	return nil
}
