package outbox

const summarySyncedSchema = `{
  "type": "object",
  "title": "SummarySynced",
  "properties": {
    "summary_id": {"type": "string"},
    "user_id": {"type": "string"},
    "date": {"type": "string", "format": "date-time"},
    "total_active_seconds": {"type": "integer"},
    "context_switch_count": {"type": "integer"},
    "activity_count": {"type": "integer"},
    "synced_at": {"type": "string", "format": "date-time"}
  },
  "required": ["summary_id", "user_id", "date", "total_active_seconds", "context_switch_count", "activity_count", "synced_at"],
  "additionalProperties": false
}`

const userProvisionedSchema = `{
  "type": "object",
  "title": "UserProvisioned",
  "properties": {
    "user_id": {"type": "string"},
    "email": {"type": "string"},
    "created_at": {"type": "string", "format": "date-time"}
  },
  "required": ["user_id", "email", "created_at"],
  "additionalProperties": false
}`
