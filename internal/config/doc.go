// Package config turns a desired-state document into the validated, immutable
// Model the rest of stevedore works from.
//
// A document lists services (each with an opaque compose descriptor, its
// dependencies, required networks, an optional health check and a restart
// policy) and the shared networks they use. Documents may be YAML, JSON or
// TOML; the format is picked from the file extension.
//
//	model, err := config.Load("/srv/stack/stevedore.yaml")
//	if err != nil {
//	    var cfgErr *config.ConfigValidationError
//	    if errors.As(err, &cfgErr) {
//	        fmt.Println(cfgErr.Detailed())
//	    }
//	    return err
//	}
//
// Validation collects every problem in the document instead of stopping at
// the first one. Dependency names that do not refer to a declared service are
// reported as UnknownDependencyError values inside the ConfigValidationError,
// so callers can match them with errors.As.
//
// The descriptor_path and health_check.target fields are rendered as Go
// templates with the sprig function map and the document's vars:
//
//	vars:
//	  root: /srv/stack
//	services:
//	  - name: mail
//	    descriptor_path: "{{ .Vars.root }}/mail/docker-compose.yml"
//	    health_check:
//	      kind: tcp
//	      target: '{{ env "MAIL_HOST" | default "localhost" }}:25'
//
// Once built a Model never changes; accessors hand out copies.
package config
