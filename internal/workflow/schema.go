package workflow

// ReportSchema is the JSON Schema of the document written by WriteJSON.
const ReportSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://lasso.dev/schemas/reports.json",
  "title": "Lasso arena reports",
  "type": "object",
  "required": ["version", "summary", "reports"],
  "properties": {
    "version": {"type": "integer", "const": 1},
    "summary": {
      "type": "object",
      "required": ["adapters", "sequences", "passed"],
      "properties": {
        "adapters": {"type": "integer", "minimum": 0},
        "sequences": {"type": "integer", "minimum": 0},
        "passed": {"type": "integer", "minimum": 0},
        "mutants": {"type": "integer", "minimum": 0},
        "mutation_score": {"type": "number", "minimum": 0, "maximum": 1}
      },
      "additionalProperties": false
    },
    "reports": {
      "type": "array",
      "items": {"$ref": "#/$defs/report"}
    }
  },
  "additionalProperties": false,
  "$defs": {
    "report": {
      "type": "object",
      "required": ["run_id", "cut", "class", "adapter_id", "fingerprint"],
      "properties": {
        "run_id": {"type": "string"},
        "cut": {"type": "string", "minLength": 1},
        "class": {"type": "string"},
        "adapter_id": {"type": "integer"},
        "fingerprint": {"type": "string"},
        "members": {"type": "array", "items": {"type": "string"}},
        "sequences": {"type": "array", "items": {"$ref": "#/$defs/sequence"}},
        "mutants": {"type": "array", "items": {"$ref": "#/$defs/mutant"}}
      },
      "additionalProperties": false
    },
    "sequence": {
      "type": "object",
      "required": ["sequence", "instantiated", "passed"],
      "properties": {
        "sequence": {"type": "string"},
        "instantiated": {"type": "boolean"},
        "passed": {"type": "boolean"},
        "error": {"type": "string"},
        "observations": {"type": "array", "items": {"$ref": "#/$defs/observation"}}
      },
      "additionalProperties": false
    },
    "observation": {
      "type": "object",
      "required": ["statement", "status", "duration"],
      "properties": {
        "statement": {"type": "integer", "minimum": 0},
        "member": {"type": "string"},
        "status": {"enum": ["ok", "failed", "panicked", "timed_out", "skipped"]},
        "value": {"type": "string"},
        "error": {"type": "string"},
        "duration": {"type": "integer", "minimum": 0}
      },
      "additionalProperties": false
    },
    "mutant": {
      "type": "object",
      "required": ["mutation_id", "type", "file", "line", "status"],
      "properties": {
        "mutation_id": {"type": "string"},
        "type": {"type": "string"},
        "file": {"type": "string"},
        "line": {"type": "integer"},
        "status": {"enum": ["killed", "survived", "skipped", "error"]},
        "detail": {"type": "string"}
      },
      "additionalProperties": false
    }
  }
}`
