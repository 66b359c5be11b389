package bot

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"drivebot/internal/drive"
	"drivebot/internal/progress"
	"drivebot/pkg/utils"
)

// messageLimit is Telegram's maximum message length. Longer listings are
// delivered as a file attachment instead.
const messageLimit = 4096

// mirrorTimeout bounds the wait for the mirror confirmation reply
const mirrorTimeout = time.Minute

func (b *Bot) handleAuth(ctx context.Context, msg *tgbotapi.Message, _ []string) {
	uid := userID(msg)
	ok, err := b.creds.Authorized(uid)
	if err != nil {
		b.fail(nil, msg, "Setup", err)
		return
	}
	if ok {
		b.reply(msg, "**Credentials already generated, remove them with** `.gdreset`**.**")
		return
	}

	operator := b.cfg.Telegram.OperatorChatID
	b.send(operator, fmt.Sprintf(
		"**Open this link to authorize Google Drive access:**\n\n%s\n\n**Then reply here with the code.**",
		b.creds.AuthURL()))

	status := b.reply(msg, "**Waiting for the authorization code in the operator chat...**")
	code, err := b.waitForReply(ctx, operator, b.cfg.Drive.AuthTimeout)
	if err != nil {
		b.edit(status, fmt.Sprintf("**Authorization failed:** `%v`", err))
		return
	}
	if err := b.creds.Exchange(ctx, uid, code); err != nil {
		b.edit(status, fmt.Sprintf("**Authorization failed:** `%v`", err))
		return
	}
	b.edit(status, "**Credentials generated successfully.**")
}

func (b *Bot) handleReset(_ context.Context, msg *tgbotapi.Message, _ []string) {
	if err := b.creds.Clear(userID(msg)); err != nil {
		b.fail(nil, msg, "Reset", err)
		return
	}
	b.reply(msg, "**Credentials removed.**")
}

// handleTransfer is the .gd entry point. Exactly one source is accepted:
// replied-to media, a local path, a Drive link, a direct HTTP(S) URL, a
// magnet link, or a bare file id.
func (b *Bot) handleTransfer(ctx context.Context, msg *tgbotapi.Message, args []string) {
	value := ""
	if len(args) > 0 {
		value = strings.TrimSpace(args[0])
	}
	media := replyMedia(msg.ReplyToMessage)

	if value != "" && media != nil {
		b.reply(msg, "**Give a source or reply to a file, not both.**")
		return
	}
	if value == "" && media == nil {
		b.reply(msg, "**Reply to a file or give a local path, link or file id.**")
		return
	}

	label := value
	if media != nil {
		label = media.name
	}
	task, tctx := b.tasks.Start(ctx, msg.Chat.ID, label)
	defer b.tasks.Finish(task)

	nav, tr, sy, err := b.driveFor(tctx, msg)
	if err != nil {
		b.fail(nil, msg, "Setup", err)
		return
	}

	status := b.reply(msg, "**GDrive - Setting up...**")
	var terr error
	switch {
	case media != nil:
		terr = b.transferTelegramMedia(tctx, status, msg, nav, tr, media)
	case pathExists(value):
		info, _ := os.Stat(value)
		if info.IsDir() {
			terr = b.transferLocalDir(tctx, status, nav, sy, value)
			// a session destination applies to one directory workflow
			b.dest.Clear()
		} else {
			terr = b.transferLocalFile(tctx, status, nav, tr, value)
		}
	case len(drive.FindLinks(value)) > 0:
		for _, link := range drive.FindLinks(value) {
			if err := b.mirrorDriveFile(tctx, status, msg, nav, tr, drive.ResolveFile(link).ID); err != nil {
				terr = err
			}
		}
	case strings.HasPrefix(value, "magnet:"):
		terr = b.transferMagnet(tctx, status, nav, tr, value)
	case strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://"):
		terr = b.transferHTTP(tctx, status, nav, tr, value)
	case drive.ResolveFile(value).Kind == drive.MatchRawID && looksLikeRemoteID(value):
		terr = b.mirrorDriveFile(tctx, status, msg, nav, tr, value)
	default:
		terr = drive.ErrInvalidSource
		b.fail(status, msg, "Transfer", terr)
	}
	b.finishTask(task, terr)
}

// looksLikeRemoteID mirrors the resolver's raw-id heuristic for the
// transfer dispatcher: ids carry a digit, a hyphen or an underscore.
func looksLikeRemoteID(s string) bool {
	if strings.ContainsAny(s, "-_") {
		return true
	}
	return strings.IndexFunc(s, func(r rune) bool { return r >= '0' && r <= '9' }) >= 0
}

func pathExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// media is the Telegram-side description of a replied-to attachment
type media struct {
	fileID string
	name   string
}

func replyMedia(reply *tgbotapi.Message) *media {
	if reply == nil {
		return nil
	}
	switch {
	case reply.Document != nil:
		return &media{reply.Document.FileID, reply.Document.FileName}
	case reply.Audio != nil:
		return &media{reply.Audio.FileID, reply.Audio.FileName}
	case reply.Video != nil:
		return &media{reply.Video.FileID, reply.Video.FileName}
	case reply.Animation != nil:
		return &media{reply.Animation.FileID, reply.Animation.FileName}
	case reply.Voice != nil:
		return &media{reply.Voice.FileID, ""}
	case reply.VideoNote != nil:
		return &media{reply.VideoNote.FileID, ""}
	case len(reply.Photo) > 0:
		// the last photo size is the largest
		return &media{reply.Photo[len(reply.Photo)-1].FileID, ""}
	}
	return nil
}

func (b *Bot) transferTelegramMedia(ctx context.Context, status, msg *tgbotapi.Message, nav *drive.Navigator, tr *drive.Transferer, m *media) error {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: m.fileID})
	if err != nil {
		err = fmt.Errorf("failed to fetch file from Telegram: %w", err)
		b.fail(status, msg, "Download", err)
		return err
	}

	local, err := b.fetcher.Download(ctx, file.Link(b.api.Token), b.cfg.Drive.StagingDir, b.progressTo(status))
	if err != nil {
		b.fail(status, msg, "Download", err)
		return err
	}
	// Telegram's download URLs carry opaque names; restore the original
	if m.name != "" && filepath.Base(local) != m.name {
		named := filepath.Join(filepath.Dir(local), m.name)
		if err := os.Rename(local, named); err == nil {
			local = named
		}
	}
	defer os.Remove(local)

	return b.uploadStaged(ctx, status, nav, tr, local)
}

func (b *Bot) transferLocalFile(ctx context.Context, status *tgbotapi.Message, nav *drive.Navigator, tr *drive.Transferer, path string) error {
	res, err := tr.Upload(ctx, path, nav.DefaultParent(), b.progressTo(status))
	if err != nil {
		b.fail(status, nil, "Upload", err)
		return err
	}
	b.edit(status, b.uploadedText(res.Name, res.Size, res.Link, false))
	return nil
}

// transferLocalDir mirrors a local directory into the remote tree. Failed
// children are reported as skipped entries, not as a failed workflow; only
// cancellation and terminal errors come back as an error.
func (b *Bot) transferLocalDir(ctx context.Context, status *tgbotapi.Message, nav *drive.Navigator, sy *drive.Syncer, path string) error {
	name := filepath.Base(filepath.Clean(path))
	folder, err := nav.CreateFolder(ctx, name, nav.DefaultParent())
	if err != nil {
		b.fail(status, nil, "Upload", err)
		return err
	}

	_, treeErr := sy.UploadTree(ctx, path, folder.ID, b.progressTo(status))
	if errors.Is(treeErr, context.Canceled) {
		b.fail(status, nil, "Upload", treeErr)
		return treeErr
	}

	size, err := nav.SubtreeSize(ctx, folder.ID)
	if err != nil {
		b.fail(status, nil, "Upload", err)
		return err
	}

	text := b.uploadedText(folder.Name, size, folder.ViewLink, true)
	if treeErr != nil {
		text += fmt.Sprintf("\n**Skipped entries:**\n`%v`", treeErr)
	}
	b.edit(status, text)
	return nil
}

// mirrorDriveFile downloads a shared Drive file into staging and, after
// an explicit confirmation, mirrors it into the user's own tree.
func (b *Bot) mirrorDriveFile(ctx context.Context, status, msg *tgbotapi.Message, nav *drive.Navigator, tr *drive.Transferer, fileID string) error {
	local, err := tr.Download(ctx, fileID, b.cfg.Drive.StagingDir, b.progressTo(status))
	if err != nil {
		b.fail(status, msg, "Download", err)
		return err
	}
	defer os.Remove(local)

	name := filepath.Base(local)
	b.edit(status, fmt.Sprintf(
		"**GDrive - Download**\n\n**Name:** `%s`\n**Status:** Downloaded.\n\n**Mirror it to your Drive? Reply** `yes` **or** `no`**.**", name))

	answer, err := b.waitForReply(ctx, msg.Chat.ID, mirrorTimeout)
	if err != nil || !strings.EqualFold(answer, "yes") {
		b.edit(status, fmt.Sprintf("**GDrive - Download**\n\n**Name:** `%s`\n**Status:** Downloaded, not mirrored.", name))
		return nil
	}
	return b.uploadStaged(ctx, status, nav, tr, local)
}

func (b *Bot) transferMagnet(ctx context.Context, status *tgbotapi.Message, nav *drive.Navigator, tr *drive.Transferer, uri string) error {
	staging, err := filepath.Abs(b.cfg.Drive.StagingDir)
	if err != nil {
		b.fail(status, nil, "Download", err)
		return err
	}
	gid, err := b.aria.AddURI(ctx, uri, staging)
	if err != nil {
		b.fail(status, nil, "Download", err)
		return err
	}

	final, err := b.aria.WaitDownload(ctx, gid, b.progressTo(status))
	if err != nil {
		b.fail(status, nil, "Download", err)
		return err
	}

	local := filepath.Join(staging, final.Name())
	defer os.RemoveAll(local)

	info, err := os.Stat(local)
	if err != nil {
		err = fmt.Errorf("finished download missing from staging: %w", err)
		b.fail(status, nil, "Download", err)
		return err
	}
	if info.IsDir() {
		treeErr := b.transferLocalDir(ctx, status, nav, drive.NewSyncer(nav, tr), local)
		// a session destination applies to one directory workflow
		b.dest.Clear()
		return treeErr
	}
	return b.uploadStaged(ctx, status, nav, tr, local)
}

func (b *Bot) transferHTTP(ctx context.Context, status *tgbotapi.Message, nav *drive.Navigator, tr *drive.Transferer, rawURL string) error {
	local, err := b.fetcher.Download(ctx, rawURL, b.cfg.Drive.StagingDir, b.progressTo(status))
	if err != nil {
		b.fail(status, nil, "Download", err)
		return err
	}
	defer os.Remove(local)
	return b.uploadStaged(ctx, status, nav, tr, local)
}

// uploadStaged pushes a staged local file into the remote tree and edits
// status with the outcome
func (b *Bot) uploadStaged(ctx context.Context, status *tgbotapi.Message, nav *drive.Navigator, tr *drive.Transferer, path string) error {
	res, err := tr.Upload(ctx, path, nav.DefaultParent(), b.progressTo(status))
	if err != nil {
		b.fail(status, nil, "Upload", err)
		return err
	}
	b.edit(status, b.uploadedText(res.Name, res.Size, res.Link, false))
	return nil
}

// progressTo renders throttled progress snapshots into status edits
func (b *Bot) progressTo(status *tgbotapi.Message) progress.Func {
	return func(s progress.Snapshot) {
		b.edit(status, s.String())
	}
}

func (b *Bot) uploadedText(name string, size int64, link string, folder bool) string {
	var sb strings.Builder
	sb.WriteString("**GDrive - Upload**\n\n")
	fmt.Fprintf(&sb, "**Name:** `%s`\n", name)
	fmt.Fprintf(&sb, "**Size:** `%s`\n", utils.FormatBytes(size))
	if link != "" {
		fmt.Fprintf(&sb, "**Link:** [Here](%s)\n", link)
	}
	if idx := b.indexLink(name, folder); idx != "" {
		fmt.Fprintf(&sb, "**Index:** [Here](%s)\n", idx)
	}
	sb.WriteString("**Status:** Uploaded successfully.")
	return sb.String()
}

// indexLink builds a browse link on the configured index, if any
func (b *Bot) indexLink(name string, folder bool) string {
	base := strings.TrimRight(b.cfg.Drive.IndexURL, "/")
	if base == "" {
		return ""
	}
	link := base + "/" + url.PathEscape(name)
	if folder {
		link += "/"
	}
	return link
}

// ---- listing ----

// listArgs are the parsed .gdlist options
type listArgs struct {
	PageSize int64
	Parent   string // folder link or id, unresolved
	NamePart string
}

// parseListArgs parses "-l <n>" and "-p <folder>" flags plus an optional
// free-form name filter
func parseListArgs(raw string) (listArgs, error) {
	args := listArgs{PageSize: drive.DefaultPageSize}
	tokens := strings.Fields(raw)
	var nameParts []string
	for i := 0; i < len(tokens); i++ {
		switch tokens[i] {
		case "-l":
			i++
			if i >= len(tokens) {
				return listArgs{}, errors.New("-l needs a number")
			}
			n, err := strconv.ParseInt(tokens[i], 10, 64)
			if err != nil || n <= 0 {
				return listArgs{}, fmt.Errorf("invalid page size %q", tokens[i])
			}
			args.PageSize = n
		case "-p":
			i++
			if i >= len(tokens) {
				return listArgs{}, errors.New("-p needs a folder link or id")
			}
			args.Parent = tokens[i]
		default:
			nameParts = append(nameParts, tokens[i])
		}
	}
	args.NamePart = strings.Join(nameParts, " ")
	return args, nil
}

func (b *Bot) handleList(ctx context.Context, msg *tgbotapi.Message, args []string) {
	raw := ""
	if len(args) > 0 {
		raw = args[0]
	}
	opts, err := parseListArgs(raw)
	if err != nil {
		b.reply(msg, fmt.Sprintf("**Usage:** `.gdlist [-l <n>] [-p <folder>] [name]`\n**Error:** `%v`", err))
		return
	}

	nav, _, _, err := b.driveFor(ctx, msg)
	if err != nil {
		b.fail(nil, msg, "List", err)
		return
	}

	q := drive.ListQuery{NamePart: opts.NamePart, PageSize: opts.PageSize}
	if opts.Parent != "" {
		m, err := drive.Resolve(opts.Parent)
		if err != nil {
			b.fail(nil, msg, "List", err)
			return
		}
		q.ParentID = m.ID
	}

	files, err := nav.ListChildren(ctx, q)
	if err != nil {
		b.fail(nil, msg, "List", err)
		return
	}
	if len(files) == 0 {
		b.reply(msg, "**No results found.**")
		return
	}

	text := renderListing(files)
	if len(text) > messageLimit {
		b.sendDocument(msg.Chat.ID, "drive-list.txt", renderListingPlain(files),
			fmt.Sprintf("%d results", len(files)))
		return
	}
	b.reply(msg, text)
}

// renderListing formats results as Markdown, folders first
func renderListing(files []drive.File) string {
	var folders, plain []drive.File
	for _, f := range files {
		if f.IsFolder() {
			folders = append(folders, f)
		} else {
			plain = append(plain, f)
		}
	}

	var sb strings.Builder
	if len(folders) > 0 {
		sb.WriteString("**Folders:**\n")
		for _, f := range folders {
			fmt.Fprintf(&sb, "[%s](%s)\n", f.Name, f.ViewLink)
		}
		sb.WriteString("\n")
	}
	if len(plain) > 0 {
		sb.WriteString("**Files:**\n")
		for _, f := range plain {
			fmt.Fprintf(&sb, "[%s](%s) `%s`\n", f.Name, f.ViewLink, utils.FormatBytes(f.Size))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// renderListingPlain formats results for the file-attachment fallback
func renderListingPlain(files []drive.File) string {
	var sb strings.Builder
	for _, f := range files {
		kind := "file"
		if f.IsFolder() {
			kind = "folder"
		}
		fmt.Fprintf(&sb, "%s\t%s\t%s\t%s\n", f.Name, kind, utils.FormatBytes(f.Size), f.ViewLink)
	}
	return sb.String()
}

// ---- folder management ----

// handleManage runs .gdf mkdir|rm|chck over a semicolon-separated batch.
// A failed target is reported and the batch continues.
func (b *Bot) handleManage(ctx context.Context, msg *tgbotapi.Message, args []string) {
	op := args[0]
	rest := ""
	if len(args) > 1 {
		rest = strings.TrimSpace(args[1])
	}
	if rest == "" {
		b.reply(msg, "**Usage:** `.gdf mkdir|rm|chck <name>[;<name>...]`")
		return
	}

	nav, _, _, err := b.driveFor(ctx, msg)
	if err != nil {
		b.fail(nil, msg, "Manage", err)
		return
	}

	var lines []string
	for _, target := range strings.Split(rest, ";") {
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		line, err := b.manageOne(ctx, nav, op, target)
		if err != nil {
			lines = append(lines, fmt.Sprintf("`%s`: failed: `%v`", target, err))
			continue
		}
		lines = append(lines, line)
	}
	b.reply(msg, strings.Join(lines, "\n"))
}

func (b *Bot) manageOne(ctx context.Context, nav *drive.Navigator, op, target string) (string, error) {
	switch op {
	case "mkdir":
		if existing, ok, err := nav.FindByName(ctx, target); err != nil {
			return "", err
		} else if ok && existing.IsFolder() {
			return fmt.Sprintf("[%s](%s): already exists", existing.Name, existing.ViewLink), nil
		}
		folder, err := nav.CreateFolder(ctx, target, "")
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("[%s](%s): created", folder.Name, folder.ViewLink), nil

	case "rm":
		node, err := b.lookup(ctx, nav, target)
		if err != nil {
			return "", err
		}
		if err := nav.Delete(ctx, node.ID); err != nil {
			return "", err
		}
		return fmt.Sprintf("`%s`: deleted", node.Name), nil

	case "chck":
		node, err := b.lookup(ctx, nav, target)
		if err != nil {
			return "", err
		}
		kind := "file"
		if node.IsFolder() {
			kind = "folder"
		}
		return fmt.Sprintf("[%s](%s): %s, `%s`", node.Name, node.ViewLink, kind, utils.FormatBytes(node.Size)), nil
	}
	return "", fmt.Errorf("unknown operation %q", op)
}

// lookup finds a node by exact name first, then by treating the target
// as a link or id
func (b *Bot) lookup(ctx context.Context, nav *drive.Navigator, target string) (drive.File, error) {
	if node, ok, err := nav.FindByName(ctx, target); err != nil {
		return drive.File{}, err
	} else if ok {
		return node, nil
	}
	m, err := drive.Resolve(target)
	if err != nil {
		return drive.File{}, fmt.Errorf("no node named %q and not a valid link or id", target)
	}
	return nav.Stat(ctx, m.ID)
}

// ---- session destination ----

func (b *Bot) handleDest(_ context.Context, msg *tgbotapi.Message, args []string) {
	op := args[0]
	value := ""
	if len(args) > 1 {
		value = strings.TrimSpace(args[1])
	}
	switch op {
	case "put":
		m, err := drive.Resolve(value)
		if err != nil {
			b.fail(nil, msg, "Destination", err)
			return
		}
		b.dest.Set(m.ID)
		b.reply(msg, fmt.Sprintf("**Upload destination set to** `%s`**.**", m.ID))
	case "rm":
		b.dest.Clear()
		b.reply(msg, "**Upload destination reverted to the default.**")
	}
}

// ---- abort ----

func (b *Bot) handleAbort(ctx context.Context, msg *tgbotapi.Message, _ []string) {
	n := b.tasks.CancelAll()
	if err := b.aria.PurgeAll(ctx); err != nil {
		b.reply(msg, fmt.Sprintf("**Cancelled %d task(s); purging downloads failed:** `%v`", n, err))
		return
	}
	b.reply(msg, fmt.Sprintf("**Cancelled %d task(s).**", n))
}

// ---- clone ----

func (b *Bot) handleClone(ctx context.Context, msg *tgbotapi.Message, args []string) {
	value := ""
	if len(args) > 0 {
		value = strings.TrimSpace(args[0])
	}
	if value == "" {
		b.reply(msg, "**Usage:** `.gcl <link or id>`")
		return
	}

	m, err := drive.Resolve(value)
	if err != nil {
		m = drive.ResolveFile(value)
	}

	task, tctx := b.tasks.Start(ctx, msg.Chat.ID, value)
	defer b.tasks.Finish(task)
	b.finishTask(task, b.clone(tctx, msg, m.ID))
}

func (b *Bot) clone(ctx context.Context, msg *tgbotapi.Message, id string) error {
	nav, _, sy, err := b.driveFor(ctx, msg)
	if err != nil {
		b.fail(nil, msg, "Clone", err)
		return err
	}
	status := b.reply(msg, "**GDrive - Cloning...**")

	src, err := nav.Stat(ctx, id)
	if err != nil {
		b.fail(status, msg, "Clone", err)
		return err
	}

	if src.IsFolder() {
		folder, err := nav.CreateFolder(ctx, src.Name, nav.DefaultParent())
		if err != nil {
			b.fail(status, msg, "Clone", err)
			return err
		}
		_, treeErr := sy.CopyTree(ctx, src.ID, folder.ID)
		if errors.Is(treeErr, context.Canceled) {
			b.fail(status, msg, "Clone", treeErr)
			return treeErr
		}
		size, _ := nav.SubtreeSize(ctx, folder.ID)
		text := b.clonedText(folder.Name, size, folder.ViewLink, true)
		if treeErr != nil {
			text += fmt.Sprintf("\n**Skipped entries:**\n`%v`", treeErr)
		}
		b.edit(status, text)
		return nil
	}

	copied, err := nav.Copy(ctx, src.ID, nav.DefaultParent())
	if err != nil {
		b.fail(status, msg, "Clone", err)
		return err
	}
	b.edit(status, b.clonedText(copied.Name, copied.Size, copied.ViewLink, false))
	return nil
}

func (b *Bot) clonedText(name string, size int64, link string, folder bool) string {
	var sb strings.Builder
	sb.WriteString("**GDrive - Clone**\n\n")
	fmt.Fprintf(&sb, "**Name:** `%s`\n", name)
	fmt.Fprintf(&sb, "**Size:** `%s`\n", utils.FormatBytes(size))
	if link != "" {
		fmt.Fprintf(&sb, "**Link:** [Here](%s)\n", link)
	}
	if idx := b.indexLink(name, folder); idx != "" {
		fmt.Fprintf(&sb, "**Index:** [Here](%s)\n", idx)
	}
	sb.WriteString("**Status:** Cloned successfully.")
	return sb.String()
}
