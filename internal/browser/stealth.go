package browser

// stealthArgs - флаги Chromium, которые убирают явные признаки автоматизации.
func stealthArgs() []string {
	return []string{
		"--disable-blink-features=AutomationControlled",
		"--disable-notifications",
		"--start-maximized",
		"--no-first-run",
		"--no-default-browser-check",
	}
}

func ignoredDefaultArgs() []string {
	return []string{"--enable-automation"}
}

// stealthScript выполняется до скриптов страницы в каждом документе контекста.
const stealthScript = `
(() => {
	if (window.__clipperStealth) return;
	window.__clipperStealth = true;

	try {
		Object.defineProperty(navigator, 'webdriver', {
			get: () => undefined,
			configurable: true
		});

		Object.defineProperty(navigator, 'plugins', {
			get: () => {
				const plugins = [
					{ name: 'Chrome PDF Plugin', filename: 'internal-pdf-viewer', description: 'Portable Document Format', length: 1 },
					{ name: 'Chrome PDF Viewer', filename: 'mhjfbmdgcfjbbpaeojofohoefgiehjai', description: '', length: 1 },
					{ name: 'Native Client', filename: 'internal-nacl-plugin', description: '', length: 2 }
				];
				plugins.item = (i) => plugins[i] || null;
				plugins.namedItem = (n) => plugins.find(p => p.name === n) || null;
				plugins.refresh = () => {};
				return plugins;
			},
			configurable: true
		});

		Object.defineProperty(navigator, 'languages', {
			get: () => ['en-US', 'en'],
			configurable: true
		});

		if (!window.chrome) {
			window.chrome = {};
		}
		if (!window.chrome.runtime) {
			window.chrome.runtime = {
				connect: () => ({ onMessage: { addListener: () => {} }, postMessage: () => {} }),
				sendMessage: () => {},
				onMessage: { addListener: () => {} }
			};
		}

		const originalQuery = window.navigator.permissions && window.navigator.permissions.query;
		if (originalQuery) {
			window.navigator.permissions.query = (parameters) => (
				parameters.name === 'notifications'
					? Promise.resolve({ state: Notification.permission })
					: originalQuery(parameters)
			);
		}
	} catch (e) {}
})();
`
