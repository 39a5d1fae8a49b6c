package cli

const rootLong = `shortfunc shortens overlong Go functions by repeatedly extracting the
best-scoring block of statements into a new helper function or method.

Every round re-parses the file, picks the first function longer than
max_length, enumerates the statement windows that can legally be moved,
scores them and applies the best one. A file is done when no function
qualifies or no candidate would make it shorter.

Settings are read from ` + "`.shortfunc.yaml`" + `, SHORTFUNC_* environment
variables and flags, in increasing precedence.`

const rootExample = `  # Refactor every Go file below the current directory
  shortfunc run ./...

  # Preview the changes as a unified diff
  shortfunc run --dry-run ./pkg

  # List overlong functions and how many extractions each allows
  shortfunc scan ./internal

  # Show the ranked candidates of one function
  shortfunc candidates pkg/report/report.go Builder.Render

  # Refactor files as they are saved
  shortfunc watch .`
