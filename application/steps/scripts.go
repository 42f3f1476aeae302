package steps

// Page-side helpers shared by every interaction script.
const helpers = `
  const norm = (s) => (s || '').replace(/\s+/g, ' ').trim();
  const query = (sels, root) => {
    for (const s of sels || []) {
      let el = null;
      try { el = (root || document).querySelector(s); } catch (e) {}
      if (el) return el;
    }
    return null;
  };
  const queryAll = (sels, root) => {
    if (!sels || !sels.length) return [];
    try { return Array.from((root || document).querySelectorAll(sels.join(', '))); } catch (e) { return []; }
  };
  const pickByLabel = (cands, labels) => {
    const wanted = (labels || []).map(norm).filter(Boolean);
    if (!wanted.length) return cands[0] || null;
    const text = (c) => norm(c.textContent) || norm(c.getAttribute('aria-label'));
    return cands.find((c) => wanted.includes(text(c))) ||
      cands.find((c) => wanted.some((l) => text(c).includes(l))) || null;
  };
  const humanClick = (el) => {
    el.scrollIntoView({ block: 'center' });
    const r = el.getBoundingClientRect();
    const o = { bubbles: true, cancelable: true, clientX: r.left + r.width / 2, clientY: r.top + r.height / 2 };
    for (const t of ['mouseenter', 'mouseover', 'mousedown', 'mouseup']) el.dispatchEvent(new MouseEvent(t, o));
    el.click();
  };
`

const fillScript = `(a) => {` + helpers + `
  const el = query(a.selectors);
  if (!el) return { success: false, error: a.field + ' not found' };
  el.focus();
  el.dispatchEvent(new FocusEvent('focus', { bubbles: true }));
  if (el.tagName === 'TEXTAREA' || el.tagName === 'INPUT') {
    const proto = el.tagName === 'TEXTAREA' ? HTMLTextAreaElement.prototype : HTMLInputElement.prototype;
    Object.getOwnPropertyDescriptor(proto, 'value').set.call(el, a.value);
  } else if (el.isContentEditable) {
    el.innerHTML = a.value;
  } else {
    return { success: false, error: a.field + ' is not editable' };
  }
  el.dispatchEvent(new Event('input', { bubbles: true, composed: true }));
  el.dispatchEvent(new Event('change', { bubbles: true }));
  if (!a.keep_focus) {
    el.blur();
    el.dispatchEvent(new FocusEvent('blur', { bubbles: true }));
  }
  return { success: true };
}`

const clickScript = `(a) => {` + helpers + `
  const scope = (a.scope && a.scope.length) ? query(a.scope) : document;
  if (!scope) return { success: false, error: a.name + ' container not found' };
  const hit = pickByLabel(queryAll(a.selectors, scope), a.labels);
  if (!hit) return { success: false, error: a.name + ' not found' };
  humanClick(hit);
  return { success: true, text: norm(hit.textContent).slice(0, 80) };
}`

const confirmScript = `(a) => {` + helpers + `
  for (const box of queryAll(a.containers)) {
    const hit = pickByLabel(queryAll(a.buttons, box), a.labels);
    if (hit) {
      humanClick(hit);
      return { success: true, via: 'dialog' };
    }
  }
  const hit = pickByLabel(queryAll(a.buttons), a.labels);
  if (!hit) return { success: false, error: 'confirmation button not found' };
  humanClick(hit);
  return { success: true, via: 'fallback' };
}`

const dialogReadyScript = `(a) => {` + helpers + `
  if (queryAll(a.containers).length) return true;
  return pickByLabel(queryAll(a.buttons), a.labels) !== null;
}`

const rowMenuScript = `(a) => {` + helpers + `
  const escaped = a.key.replace(/[.*+?^${}()|[\]\\]/g, '\\$&');
  const pattern = new RegExp('/n/' + escaped + '(?:[/?#]|$)');
  const link = queryAll(a.link).find((l) => pattern.test(l.getAttribute('href') || ''));
  if (!link) return { success: false, not_found: true, error: 'article with key ' + a.key + ' not found' };
  let row = null;
  try { row = link.closest(a.row.join(', ')); } catch (e) {}
  if (!row || !query(a.more, row)) {
    row = link;
    for (let i = 0; i < a.hops && row.parentElement; i++) row = row.parentElement;
  }
  const more = query(a.more, row);
  if (!more) return { success: false, error: 'more actions button not found for ' + a.key };
  humanClick(more);
  return { success: true };
}`

const magazineScript = `(a) => {` + helpers + `
  const wanted = norm(a.magazine);
  for (const item of queryAll(a.item)) {
    const nameEl = query(a.name, item);
    let name = norm(nameEl ? nameEl.textContent : item.textContent);
    if (!nameEl) for (const b of queryAll(a.add, item)) name = norm(name.replace(norm(b.textContent), ''));
    if (name !== wanted) continue;
    const btn = pickByLabel(queryAll(a.add, item), a.labels);
    if (!btn) return { success: false, error: 'add button for magazine "' + a.magazine + '" not found' };
    humanClick(btn);
    return { success: true };
  }
  return { success: false, error: 'magazine "' + a.magazine + '" not found' };
}`

const uploadScript = `(a) => {` + helpers + `
  const bin = atob(a.data);
  const bytes = new Uint8Array(bin.length);
  for (let i = 0; i < bin.length; i++) bytes[i] = bin.charCodeAt(i);
  const file = new File([bytes], a.filename, { type: a.mime });
  const dt = new DataTransfer();
  dt.items.add(file);
  const input = query(a.input);
  if (input) {
    input.files = dt.files;
    input.dispatchEvent(new Event('input', { bubbles: true }));
    input.dispatchEvent(new Event('change', { bubbles: true }));
    return { success: true, via: 'input' };
  }
  const zone = query(a.drop);
  if (!zone) return { success: false, error: a.name + ' file input not found' };
  for (const t of ['dragenter', 'dragover', 'drop']) {
    zone.dispatchEvent(new DragEvent(t, { bubbles: true, cancelable: true, dataTransfer: dt }));
  }
  return { success: true, via: 'drop' };
}`

const assetSnapshotScript = `(a) => Array.from(document.images).map((i) => i.currentSrc || i.src || '').filter((s) => s.includes(a.host))`

const uploadDoneScript = `(a) => {
  const srcs = Array.from(document.images).map((i) => i.currentSrc || i.src || '');
  if (srcs.some((s) => s.startsWith(a.placeholder))) return null;
  return srcs.find((s) => s.includes(a.host) && !a.known.includes(s)) || null;
}`
