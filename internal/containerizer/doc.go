// Package containerizer is the narrow command interface to the external
// container runtime.
//
// The orchestrator never talks to containers directly. It asks a Runtime to
// bring a compose project up or down, to list the project's containers and
// to manage shared networks. CLIRuntime implements this by running the
// docker or podman CLI:
//
//	docker compose -f <descriptor> up -d
//	docker compose -f <descriptor> down
//	docker compose -f <descriptor> ps --all --format json
//	docker network inspect <name>
//	docker network create --driver <driver> <name>
//
// The compose prefix is configurable ("docker compose", "docker-compose",
// "podman compose"). Compose commands run in the descriptor's directory.
//
// Every method is a single invocation with no retries; retry policy belongs
// to the caller. Failures carry the command's stderr in a *CommandError, and
// a missing binary is reported as ErrRuntimeUnavailable.
//
// Tests swap the package-level execCommandContext for a helper process, so
// no real runtime is needed:
//
//	rt, err := containerizer.NewRuntime(containerizer.Options{Type: "podman"})
//	if err != nil {
//	    return err
//	}
//	states, err := rt.Ps(ctx, containerizer.Project{Name: "db", DescriptorPath: "/srv/db/compose.yml"})
package containerizer
