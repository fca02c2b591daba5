// Package prompt builds the message sequences sent to the completion
// provider. Templates are pure text construction: deterministic for a given
// input, no I/O, so they can be tested without a provider call.
package prompt

import (
	"fmt"

	"github.com/footfall/footfall/internal/completion"
)

// Template versions currently in use by the pipeline. Bump a version when a
// template's wording changes in a way that alters model behavior.
const (
	QueryTemplateVersion   = "query/v1"
	SummaryTemplateVersion = "summary/v1"
)

const systemInstruction = "You are a data analyst. You can only answer data-related questions and you answer in JSON format."

// tableSchema is embedded literally in both prompts so the model can generate
// schema-valid SQL. The store bootstraps the same shape; it is not
// introspected at runtime.
const tableSchema = `CREATE TABLE shopping_centers_ft (
    day DATE COMMENT 'The date of the record',
    id VARCHAR(255) NOT NULL COMMENT 'The unique identifier of the shopping center',
    name VARCHAR(255) NOT NULL COMMENT 'The name of the shopping center',
    ft INT COMMENT 'The foot traffic at the shopping center',
    state CHAR(2) COMMENT 'The state code where the shopping center is located',
    city VARCHAR(255) COMMENT 'The city where the shopping center is located',
    formatted_address VARCHAR(255) COMMENT 'The full address of the shopping center',
    lon DECIMAL(10, 8) COMMENT 'The longitude coordinate of the shopping center',
    lat DECIMAL(10, 8) COMMENT 'The latitude coordinate of the shopping center',
    PRIMARY KEY (day, id)
);`

const queryResponseShape = `{
  "type": "object",
  "properties": {
    "query": {
      "type": "string",
      "description": "The SQL query string with placeholders for parameters."
    },
    "params": {
      "type": "array",
      "description": "An array of parameters to be substituted in place of the query's placeholders.",
      "items": {"type": "string"}
    }
  },
  "required": ["query", "params"]
}`

const summaryResponseShape = `{
  "type": "object",
  "properties": {
    "summary": {
      "type": "string",
      "description": "Explain the data in natural language for a non-technical audience."
    }
  },
  "required": ["summary"]
}`

// BuildQueryPrompt renders the query-generation messages for a user prompt.
// The dialect rules are guidance for the model, not enforced here; a query
// that violates them fails at execution time.
func BuildQueryPrompt(userPrompt string) []completion.Message {
	content := fmt.Sprintf(`Build a matching SQLite query for this prompt:
%s

* Make sure the query and functions execute on SQLite.
  * There is no built-in stdev function in SQLite.
  * Do not use stddev_pop.
  * Do not use table aliases.
  * For any calculation involving aggregate functions, first compute the aggregates separately and then use these computed values in subsequent calculations to ensure accuracy and avoid errors.
  * Reference columns directly from the CTE in your final SELECT statement without prefixing them with the original table name.
  * Structure your query to calculate aggregate metrics in one Common Table Expression (CTE) and then reference these metrics for further calculations in subsequent CTEs, ensuring all necessary data is accessible and correctly scoped for each step of the analysis.
  * Qualify ambiguous column names explicitly to avoid "ambiguous column name" errors.
* Return the query as a single string with no formatting nor escaping.
* If the purpose of the prompt is not data retrieval:
  * Write the query for the data summarization process.
  * IMPORTANT: Do not return the full data; instead, provide a concise summary that facilitates data analysis.

Table schema:
%s

Return a JSON object matching the provided schema (return only the actual values while removing any field related to the schema):
%s`, userPrompt, tableSchema, queryResponseShape)

	return []completion.Message{
		{Role: completion.RoleSystem, Content: systemInstruction},
		{Role: completion.RoleUser, Content: content},
	}
}

// BuildSummaryPrompt renders the summarization messages for a serialized
// result set and the user prompt that produced it.
func BuildSummaryPrompt(serializedResults, userPrompt string) []completion.Message {
	content := fmt.Sprintf(`Explain and analyze the following results for a data analyst:
%s

The results are based on this user prompt:
%s

Table schema:
%s

Return a JSON object matching the provided schema (return only the actual values while removing any field related to the schema):
%s`, serializedResults, userPrompt, tableSchema, summaryResponseShape)

	return []completion.Message{
		{Role: completion.RoleSystem, Content: systemInstruction},
		{Role: completion.RoleUser, Content: content},
	}
}
