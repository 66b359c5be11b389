package bot

// registerCommands declares every command pattern with its help entry.
// Patterns anchor on the whole message text, so `.gd` never swallows
// `.gdlist` and friends.
func (b *Bot) registerCommands() {
	b.register("gdauth", `^\.gdauth$`,
		"`.gdauth`\nGenerate Google Drive credentials for your account. "+
			"The authorization link and the code exchange happen in the operator chat.",
		b.handleAuth)

	b.register("gdreset", `^\.gdreset$`,
		"`.gdreset`\nRemove your stored Google Drive credentials.",
		b.handleReset)

	b.register("gd", `^\.gd(?:\s+(.+))?$`,
		"`.gd [source]`\nUpload to Google Drive. The source is a local path, "+
			"a Drive link or file id, a direct HTTP(S) URL or a magnet link; "+
			"reply to a Telegram file to upload it instead.",
		b.handleTransfer)

	b.register("gdlist", `^\.gdlist(?:\s+(.+))?$`,
		"`.gdlist [-l <n>] [-p <folder>] [name]`\nList Drive contents, most "+
			"recently modified first. `-l` caps the result count, `-p` scopes "+
			"the listing to a folder, a trailing name filters by substring.",
		b.handleList)

	b.register("gdf", `^\.gdf (mkdir|rm|chck)(?:\s+(.+))?$`,
		"`.gdf mkdir|rm|chck <name>[;<name>...]`\nManage Drive folders: "+
			"create, delete or inspect, several targets separated by `;`.",
		b.handleManage)

	b.register("gdfset", `^\.gdfset (put|rm)(?:\s+(.+))?$`,
		"`.gdfset put <folder>` / `.gdfset rm`\nOverride the upload "+
			"destination for this session, or revert to the default.",
		b.handleDest)

	b.register("gdabort", `^\.gdabort$`,
		"`.gdabort`\nCancel every in-flight transfer and purge delegated downloads.",
		b.handleAbort)

	b.register("gcl", `^\.gcl(?:\s+(.+))?$`,
		"`.gcl <link or id>`\nClone a shared Drive file or folder into your own tree.",
		b.handleClone)

	b.register("help", `^\.help$`, "`.help`\nShow this message.", b.handleHelp)
	b.register("ping", `^\.ping$`, "`.ping`\nMeasure the round trip to Telegram.", b.handlePing)
	b.register("random", `^\.random\s+(.+)$`,
		"`.random <a>;<b>[;...]`\nPick one of the given options.", b.handleRandom)
	b.register("sleep", `^\.sleep\s+(\d+)$`,
		"`.sleep <seconds>`\nDo nothing for a while, then say so.", b.handleSleep)
	b.register("repeat", `^\.repeat\s+(\d+)\s+(.+)$`,
		"`.repeat <n> <text>`\nSay something more than once.", b.handleRepeat)
	b.register("restart", `^\.restart$`, "`.restart`\nRestart the bot process.", b.handleRestart)
	b.register("shutdown", `^\.shutdown$`, "`.shutdown`\nStop the bot.", b.handleShutdown)
}
