// Package command implements the Kernel's Command layer: a polymorphic
// registry keyed by subcommand name, each entry owning its own flag
// set and required-option validation and enqueueing tasks into Core's
// queue, per spec.md §4.4. Grounded on the internal/api
// controller-per-resource layout (one small struct per verb, a
// validator.Validate shared across them) generalized from "one
// controller per REST resource" to "one Command per CLI subcommand",
// and on spec.md §4.4's explicit REDESIGN FLAGS note that the registry
// replaces the original's static-initialiser macro magic with an
// enumerated list of factories built at startup.
package command

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jessevdk/go-flags"

	"github.com/oblivioncth/clifp/internal/director"
	"github.com/oblivioncth/clifp/internal/kernel"
	"github.com/oblivioncth/clifp/internal/kernelerr"
)

const (
	errUnknownCommand    uint32 = kernelerr.CommandBlock
	errMissingRequiredOption uint32 = kernelerr.CommandBlock + 1
	errOptionParse      uint32 = kernelerr.CommandBlock + 2
)

// Command is implemented by every subcommand. Perform enqueues the
// command's tasks into core's queue; it does not run them itself -
// Driver drains the queue afterward.
type Command interface {
	// Name is the subcommand token as typed on the CLI (e.g. "play").
	Name() string
	// AutoBlockNewInstances reports whether the single-instance lock
	// should be enforced for this command. update returns false so a
	// freshly staged binary can re-invoke itself with --install while
	// the original process may still be tearing down.
	AutoBlockNewInstances() bool
	// Parse parses this command's own argv tail (excluding the
	// subcommand name itself) into the command's option struct.
	Parse(args []string) error
	// HelpRequested reports whether Parse observed --help and the
	// command should short-circuit with success after printing it.
	HelpRequested() bool
	// Perform validates required options, then enqueues tasks into
	// core's queue.
	Perform(ctx context.Context, core *kernel.Core) kernelerr.Error
}

// Factory constructs a fresh Command instance bound to a Directorate,
// so every invocation gets its own option struct and short-circuit
// state.
type Factory func(d director.Directorate) Command

// validate is the single validator.Validate instance every command's
// validateRequired call shares, matching the internal/api
// pattern of threading one shared *validator.Validate through every
// controller rather than constructing one per request/command.
var validate = validator.New()

// Registry is the "name -> factory" map spec.md §4.4 calls for,
// populated explicitly at startup (see Register) rather than through
// package-level init()-time side effects.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds name's factory to the registry. Called explicitly from
// main's startup sequence for every built-in subcommand - the
// enumerated-list replacement for static-initialiser registration
// macros.
func (r *Registry) Register(name string, factory Factory) {
	r.factories[name] = factory
}

// Names returns every registered subcommand name, used to print the
// combined help listing.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}

// AutoBlockNewInstances reports whether name's command enforces the
// single-instance lock, per spec.md §4.5 step 1 - it constructs a
// throwaway command purely to query the flag (Parse is never called
// on it), so main can decide whether to acquire the lock before
// Dispatch constructs and runs the real instance. An unrecognized name
// defaults to true (locked), matching Dispatch's own "unknown command
// is always an error" stance.
func (r *Registry) AutoBlockNewInstances(d director.Directorate, name string) bool {
	factory, ok := r.factories[name]
	if !ok {
		return true
	}
	return factory(d).AutoBlockNewInstances()
}

// Dispatch looks up name's factory, constructs the command, parses its
// argv tail, and (unless help was requested) validates and runs it.
// This is the worker-thread half of spec.md §4.4's numbered dispatch
// sequence; the single-instance check and install discovery happen
// one level up, in Driver's run sequence.
func (r *Registry) Dispatch(ctx context.Context, d director.Directorate, core *kernel.Core, name string, args []string) kernelerr.Error {
	factory, ok := r.factories[name]
	if !ok {
		return kernelerr.New(errUnknownCommand, kernelerr.Critical, "Unknown command").WithSpecific(name)
	}

	cmd := factory(d)

	if err := cmd.Parse(args); err != nil {
		if flagsErr, isFlagsErr := err.(*flags.Error); isFlagsErr && flagsErr.Type == flags.ErrHelp {
			d.PostMessage(helpText(cmd))
			return kernelerr.Nil
		}
		return kernelerr.New(errOptionParse, kernelerr.Critical, "Failed to parse command options").WithSpecific(err.Error())
	}

	if cmd.HelpRequested() {
		d.PostMessage(helpText(cmd))
		return kernelerr.Nil
	}

	return cmd.Perform(ctx, core)
}

func helpText(cmd Command) string {
	return fmt.Sprintf("Help requested for %q; the command was not run.", cmd.Name())
}

// validateRequired runs validate.Struct(opts) and, on failure,
// translates the first validation error into a MissingRequiredOption
// kernelerr.Error, per spec.md §4.4 step 3.
func validateRequired(opts any) kernelerr.Error {
	return validateRequiredCoded(opts, 0)
}

// validateRequiredCoded is validateRequired plus an override: a failed
// "oneof" tag (an option that was supplied but whose value isn't one of
// the accepted choices, e.g. play's -r) is reported under oneOfCode
// instead of the generic MissingRequiredOption. oneOfCode of 0 disables
// the override and behaves exactly like validateRequired.
func validateRequiredCoded(opts any, oneOfCode uint32) kernelerr.Error {
	err := validate.Struct(opts)
	if err == nil {
		return kernelerr.Nil
	}

	if oneOfCode != 0 {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				if fe.Tag() == "oneof" {
					return kernelerr.New(oneOfCode, kernelerr.Critical, "Invalid option value").WithSpecific(fe.Error())
				}
			}
		}
	}

	return kernelerr.New(errMissingRequiredOption, kernelerr.Critical, "Missing required option").WithSpecific(err.Error())
}
