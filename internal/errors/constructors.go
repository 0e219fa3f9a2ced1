package errors

// Convenience constructors for the error taxonomy used by the pipeline.

// Precondition errors (pipeline must not proceed)

func RemoteUnresolved() *WikiError {
	return New(CategoryPrecondition, SeverityFatal,
		"no git remote detected and no repository.url configured; set repository.url to enable linked citations or citations.format to local")
}

func BranchUnresolved() *WikiError {
	return New(CategoryPrecondition, SeverityFatal,
		"could not determine branch; set repository.branch")
}

func ConfigNotFound(path string) *WikiError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

func ValidationFailed(field, reason string) *WikiError {
	return New(CategoryValidation, SeverityFatal, "validation failed").
		WithContext("field", field).
		WithContext("reason", reason)
}

// Budget errors (re-requestable)

func BudgetViolation(node, reason string) *WikiError {
	return Retryable(CategoryBudget, SeverityError, "page draft failed budget acceptance").
		WithContext("node", node).
		WithContext("reason", reason)
}

// Format defects (surfaced per page, never abort the run)

func FormatDefect(page, detail string) *WikiError {
	return New(CategoryFormat, SeverityWarning, "format defect").
		WithContext("page", page).
		WithContext("detail", detail)
}

func MissingSources(page string, line int) *WikiError {
	return New(CategoryFormat, SeverityWarning, "diagram missing sources annotation").
		WithContext("page", page).
		WithContext("line", line)
}

// Generator boundary errors

func GeneratorFailed(node string, cause error) *WikiError {
	return Wrap(cause, CategoryGenerator, SeverityError, "content generator request failed").
		WithContext("node", node)
}
