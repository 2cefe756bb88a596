// Copyright (c) 2026 Stackup Authors.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/stackup-dev/stackup/internal/meta"
)

const bashCompletionScript = `# bash completion for stackup
# Fallback if bash-completion is not installed
if ! declare -F _get_comp_words_by_ref >/dev/null 2>&1; then
  _get_comp_words_by_ref() {
    cur=${COMP_WORDS[COMP_CWORD]}
    prev=${COMP_WORDS[COMP_CWORD-1]}
  }
fi

_stackup()
{
    local cur prev cmd
    COMPREPLY=()
    _get_comp_words_by_ref -n : cur prev

    if [[ ${COMP_CWORD} -eq 1 ]]; then
        COMPREPLY=( $(compgen -W "init create-storage create-table create-function create-api deploy status completion --help --version" -- "$cur") )
        return 0
    fi

    cmd=${COMP_WORDS[1]}
    local common="--state -s --profile -p --region -r"

    case "$cmd" in
        init)
            local opts="$common --stack --role-arn"
            ;;
        create-function)
            local opts="$common --code -c"
            ;;
        status)
            local opts="$common --query -q"
            ;;
        completion)
            local opts="bash zsh"
            COMPREPLY=( $(compgen -W "$opts" -- "$cur") )
            return 0
            ;;
        *)
            local opts="$common"
            ;;
    esac

    if [[ "$prev" == "--code" || "$prev" == "-c" ]]; then
        COMPREPLY=( $(compgen -o dirnames -- "$cur") )
        return 0
    fi

    COMPREPLY=( $(compgen -W "$opts" -- "$cur") )
    return 0
}

complete -F _stackup stackup
`

const zshCompletionScript = `#compdef stackup

_stackup() {
  local -a cmds
  cmds=(
    'init:create or update the deployment config'
    'create-storage:provision the object-storage bucket'
    'create-table:provision the key-value table'
    'create-function:package code and provision the function'
    'create-api:provision the HTTP API front-end'
    'deploy:provision every resource in dependency order'
    'status:show recorded identifiers and the next step'
    'completion:generate shell completion script'
  )

  local -a common
  common=(
  '(-s --state)'{-s,--state}'[deployment config path]:file:_files'
  '(-p --profile)'{-p,--profile}'[AWS shared config profile]:profile'
  '(-r --region)'{-r,--region}'[region override]:region'
  )

  if (( CURRENT == 2 )); then
    _describe -t commands 'stackup commands' cmds
    return
  fi

  case $words[2] in
    init)
      _arguments -C \
        $common \
        '--stack[stack name]:name' \
        '--role-arn[execution role ARN]:arn'
      ;;
    create-function)
      _arguments -C \
        $common \
        '(-c --code)'{-c,--code}'[function source directory]:directory:_directories'
      ;;
    status)
      _arguments -C \
        $common \
        '(-q --query)'{-q,--query}'[config field path]:path'
      ;;
    completion)
      _arguments '1: :((bash zsh))'
      ;;
    *)
      _arguments -C $common
      ;;
  esac
}

# If this file is sourced directly (not autoloaded via fpath), ensure compsys is initialized and register the completion
if ! typeset -f compdef >/dev/null 2>&1; then
  autoload -Uz compinit && compinit -i
fi
compdef _stackup stackup
`

func CompletionCommandAction(ctx context.Context, cmd *cli.Command) error {
	shell := ""
	if args := cmd.Args().Slice(); len(args) > 0 {
		shell = args[0]
	}
	switch shell {
	case "bash":
		fmt.Fprint(os.Stdout, bashCompletionScript)
	case "zsh":
		fmt.Fprint(os.Stdout, zshCompletionScript)
	case "":
		// Try to detect from SHELL
		sh := os.Getenv("SHELL")
		switch {
		case strings.HasSuffix(sh, "zsh"):
			fmt.Fprint(os.Stdout, zshCompletionScript)
		case strings.HasSuffix(sh, "bash"):
			fmt.Fprint(os.Stdout, bashCompletionScript)
		default:
			return errors.New("cannot detect shell from $SHELL; usage: stackup completion [bash|zsh]")
		}
	default:
		return fmt.Errorf("unsupported shell %q; usage: stackup completion [bash|zsh]", shell)
	}
	return nil
}

func CompletionCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "completion",
		Usage:     "generate shell completion script",
		UsageText: "stackup completion [bash|zsh]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Action: CompletionCommandAction,
	}
}
